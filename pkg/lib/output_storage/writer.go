package output_storage

// Write implements io.Writer so an OutputStorage can be used as exec.Cmd Stdout/Stderr.
// p is copied because exec reuses its read buffer.
func (s *OutputStorage) Write(p []byte) (int, error) {
	if s == nil || len(p) == 0 {
		return len(p), nil
	}
	s.Append(append([]byte(nil), p...))
	return len(p), nil
}
