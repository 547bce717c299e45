package membership

// HealthReporter is optionally implemented by a Membership to expose the
// gossip layer's awareness score (0 is healthy, higher is degraded, -1 means
// not started).
type HealthReporter interface {
    HealthScore() int
}
