package sdk

type SensorError struct{ code int }

func (e *SensorError) Code() int { return e.code }
func (e *SensorError) Ignore()   {}

func NewError(code int) *SensorError { return &SensorError{code: code} }

type Session struct{}

func (s *Session) Seek(position float64) *SensorError { return nil }

func (s *Session) SensorByIndex(i int) (string, *SensorError) { return "", nil }

func (s *Session) NumSensors() int { return 0 }
