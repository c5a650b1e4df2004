package models

// Notification is the realtime message envelope: a fixed type tag plus an
// arbitrary JSON-marshalable payload.
type Notification struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Outbound notification types.
const (
	MsgConnectionEstablished = "CONNECTION_ESTABLISHED"
	MsgPong                  = "PONG"
	MsgSubscriptionConfirmed = "SUBSCRIPTION_CONFIRMED"
	MsgNewWellnessAlert      = "NEW_WELLNESS_ALERT"
	MsgAlertAcknowledged     = "ALERT_ACKNOWLEDGED"
	MsgAlertResolved         = "ALERT_RESOLVED"
	MsgWellnessMetricsUpdate = "WELLNESS_METRICS_UPDATE"
	MsgTeacherWellnessAlert  = "TEACHER_WELLNESS_ALERT"
	MsgTimetableUpdate       = "TIMETABLE_UPDATE"
	MsgSystemNotification    = "SYSTEM_NOTIFICATION"
)

// Inbound notification types accepted from clients. Anything else is logged
// and ignored.
const (
	MsgPing              = "PING"
	MsgSubscribeWellness = "SUBSCRIBE_WELLNESS"
	MsgSubscribeAlerts   = "SUBSCRIBE_ALERTS"
)

// User roles carried in identity claims and connection registrations.
const (
	RoleTeacher   = "TEACHER"
	RoleAdmin     = "ADMIN"
	RolePrincipal = "PRINCIPAL"
)

// AdminRoles is the fan-out set for school-level alert notifications.
var AdminRoles = []string{RoleAdmin, RolePrincipal}
