package app

import "time"

// NotificationTTL is how long a notification stays visible.
const NotificationTTL = 3 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a transient message about the outcome of an action.
type Notification struct {
	Message   string
	Kind      Kind
	ExpiresAt time.Time
}

// Expired reports whether the notification should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

const (
	msgLoadFailed    = "Error al cargar los registros."
	msgAdded         = "Registro agregado con éxito."
	msgUpdated       = "Registro actualizado con éxito."
	msgSaveFailed    = "Error al guardar el registro."
	msgDeleted       = "Registro eliminado con éxito."
	msgDeleteFailed  = "Error al eliminar el registro."
	msgNothingExport = "No hay registros para exportar."
	msgExported      = "Registros exportados a %s."
	msgExportFailed  = "Error al exportar los registros."
)
