package tick

import "errors"

// TickLoggers writes every entry to each logger in turn and joins their errors.
type TickLoggers []TickLogger

func (ls TickLoggers) WriteTick(entry TickLogEntry) error {
	var errs []error
	for _, l := range ls {
		if l == nil {
			continue
		}
		if err := l.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type AuditLoggers []AuditLogger

func (ls AuditLoggers) WriteAudit(entry AuditEntry) error {
	var errs []error
	for _, l := range ls {
		if l == nil {
			continue
		}
		if err := l.WriteAudit(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
