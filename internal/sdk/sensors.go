package sdk

import "sync"

// sensorTable keeps sensors in discovery order. Entries stay valid until they
// are cleared; indices are not reused while an entry exists.
type sensorTable struct {
	mu      sync.RWMutex
	order   []SensorHandle
	entries map[SensorHandle]*SensorInformation
}

func (t *sensorTable) upsert(info SensorInformation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[SensorHandle]*SensorInformation)
	}
	info.IsMocked = info.Handle.IsMock()
	if existing, ok := t.entries[info.Handle]; ok {
		*existing = info
		return
	}
	cp := info
	t.entries[info.Handle] = &cp
	t.order = append(t.order, info.Handle)
}

func (t *sensorTable) clear(match func(SensorHandle) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.order[:0]
	for _, h := range t.order {
		if match(h) {
			delete(t.entries, h)
			continue
		}
		kept = append(kept, h)
	}
	t.order = kept
}

// UpdateSensor records or refreshes a sensor's information. Drivers call it
// whenever a packet identifies its sender.
func (s *Session) UpdateSensor(info SensorInformation) {
	s.sensors.upsert(info)
}

// NumSensors returns the number of sensors seen since the last clear.
func (s *Session) NumSensors() int {
	s.sensors.mu.RLock()
	defer s.sensors.mu.RUnlock()
	return len(s.sensors.order)
}

// SensorHandleBySerial looks a sensor up by serial number.
func (s *Session) SensorHandleBySerial(serial uint64) (SensorHandle, *SensorError) {
	s.sensors.mu.RLock()
	defer s.sensors.mu.RUnlock()
	for _, h := range s.sensors.order {
		if s.sensors.entries[h].SerialNumber == serial {
			return h, nil
		}
	}
	return 0, Errorf(ErrorSensorNotFound, "serial number %d", serial)
}

// SensorInformationByIndex returns the sensor at idx in [0, NumSensors()).
func (s *Session) SensorInformationByIndex(idx int) (SensorInformation, *SensorError) {
	s.sensors.mu.RLock()
	defer s.sensors.mu.RUnlock()
	if idx < 0 || idx >= len(s.sensors.order) {
		return SensorInformation{}, Errorf(ErrorInvalidArguments, "sensor index %d out of range [0, %d)", idx, len(s.sensors.order))
	}
	return *s.sensors.entries[s.sensors.order[idx]], nil
}

// SensorInformation returns the information for handle.
func (s *Session) SensorInformation(handle SensorHandle) (SensorInformation, *SensorError) {
	s.sensors.mu.RLock()
	defer s.sensors.mu.RUnlock()
	info, ok := s.sensors.entries[handle]
	if !ok {
		return SensorInformation{}, Errorf(ErrorSensorNotFound, "handle %s", handle)
	}
	return *info, nil
}
