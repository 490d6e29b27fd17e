package other

type SensorError struct{}

func Do() *SensorError { return nil }
