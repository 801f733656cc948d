package portal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cancermitr/care-platform/internal/http/middleware"
	"github.com/cancermitr/care-platform/pkg/logging"
)

// Appointment is one booking row as shown on the patient dashboard.
type Appointment struct {
	ID            int64     `json:"id"`
	ServiceType   string    `json:"serviceType"`
	CancerType    string    `json:"cancerType"`
	PreferredDate string    `json:"preferredDate"`
	PreferredTime string    `json:"preferredTime"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Dashboard is the aggregate view returned by GET /portal/dashboard.
type Dashboard struct {
	Appointments []Appointment `json:"appointments"`
	SessionCount int           `json:"sessionCount"`
	MessageCount int           `json:"messageCount"`
}

// Service reads dashboard aggregates through database/sql.
type Service struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewService creates the portal read service.
func NewService(db *sql.DB, logger *logging.Logger) *Service {
	if db == nil {
		panic("portal: database handle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: db, logger: logger}
}

// DashboardForUser loads the user's appointments and conversation counts.
func (s *Service) DashboardForUser(ctx context.Context, userID int64) (*Dashboard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_type, cancer_type, preferred_date, preferred_time, status, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY preferred_date ASC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("portal: load appointments: %w", err)
	}
	defer rows.Close()

	dash := &Dashboard{Appointments: []Appointment{}}
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(&appt.ID, &appt.ServiceType, &appt.CancerType, &appt.PreferredDate, &appt.PreferredTime, &appt.Status, &appt.CreatedAt); err != nil {
			return nil, fmt.Errorf("portal: scan appointment: %w", err)
		}
		dash.Appointments = append(dash.Appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("portal: load appointments: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1),
			(SELECT COUNT(*) FROM chat_messages m JOIN chat_sessions s ON s.id = m.session_id WHERE s.user_id = $1)`,
		userID).Scan(&dash.SessionCount, &dash.MessageCount)
	if err != nil {
		return nil, fmt.Errorf("portal: load counts: %w", err)
	}

	return dash, nil
}

// Handler exposes the portal endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the portal HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("portal: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// GetDashboard handles GET /portal/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	dash, err := h.service.DashboardForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard load failed", "user_id", userID, "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dash)
}
