// Package notifications delivers job outcome alerts.
//
// The default implementation posts to the ntfy topic URL configured under
// [notifications] and degrades to a no-op when no topic is set. The executor
// depends only on the Service interface.
package notifications
