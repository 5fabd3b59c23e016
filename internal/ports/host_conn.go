package ports

// HostConn is the realtime connection between a tracked session and the
// client it serves.
type HostConn interface {
	Close(code int, reason string) error
}
