package a

import (
	"other"
	"sdk"
)

func discarded(s *sdk.Session) {
	s.Seek(1)     // want `unchecked \*sdk\.SensorError returned by s\.Seek`
	(s.Seek(1.5)) // want `unchecked \*sdk\.SensorError returned by s\.Seek`
	_ = s.Seek(2) // want `unchecked \*sdk\.SensorError returned by s\.Seek`

	name, _ := s.SensorByIndex(0) // want `unchecked \*sdk\.SensorError returned by s\.SensorByIndex`
	_ = name
	s.SensorByIndex(1) // want `unchecked \*sdk\.SensorError returned by s\.SensorByIndex`

	go s.Seek(3)    // want `unchecked \*sdk\.SensorError returned by go s\.Seek`
	defer s.Seek(4) // want `unchecked \*sdk\.SensorError returned by defer s\.Seek`

	var _ = sdk.NewError(1)    // want `unchecked \*sdk\.SensorError returned by sdk\.NewError`
	x, _ := 1, sdk.NewError(2) // want `unchecked \*sdk\.SensorError returned by sdk\.NewError`
	_ = x
}

func checked(s *sdk.Session) int {
	if err := s.Seek(5); err != nil {
		return err.Code()
	}
	s.Seek(6).Ignore()
	err := s.Seek(7)
	_ = err.Code()
	_, err = s.SensorByIndex(2)
	err.Ignore()
	s.NumSensors()
	other.Do()
	_ = other.Do()
	return 0
}
