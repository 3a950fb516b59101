package observability

// Metric name prefixes
const (
	MetricPrefix = "leveler"
)

// Metric names
const (
	// Activity metrics
	ActivitiesTotal = MetricPrefix + ".activities.received_total"

	// XP metrics
	XPGrantsTotal  = MetricPrefix + ".xp.grants_total"
	XPGrantedTotal = MetricPrefix + ".xp.granted_total"
	LevelUpsTotal  = MetricPrefix + ".xp.level_ups_total"

	// Top-rank metrics
	LeaderChangesTotal         = MetricPrefix + ".toprank.leader_changes_total"
	RoleOperationFailuresTotal = MetricPrefix + ".toprank.role_failures_total"
	CheckQueueDroppedTotal     = MetricPrefix + ".toprank.checks_dropped_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelReason    = "reason"
	LabelEventType = "event_type"
	LabelOperation = "operation"
	LabelErrorType = "error_type"
)

// Role operations
const (
	RoleOperationAdd    = "add"
	RoleOperationRemove = "remove"
)
