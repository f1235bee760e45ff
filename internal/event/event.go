// Package event defines the domain events the scheduling engine emits and a
// publish interface for the external real-time notifier. The engine only
// produces payloads; delivery, fan-out, and subscriber state are the
// notifier's problem.
package event

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	AppointmentCreated     = "APPOINTMENT_CREATED"
	AppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	AppointmentCancelled   = "APPOINTMENT_CANCELLED"
	AppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	AppointmentCompleted   = "APPOINTMENT_COMPLETED"
	AppointmentNoShow      = "APPOINTMENT_NO_SHOW"
	AbsenceCreated         = "ABSENCE_CREATED"
	AbsenceUpdated         = "ABSENCE_UPDATED"
	AbsenceCancelled       = "ABSENCE_CANCELLED"
)

type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	DoctorID  uuid.UUID       `json:"doctor_id"`
	PatientID *uuid.UUID      `json:"patient_id,omitempty"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	At        time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// New builds an event with a fresh ID and timestamp. The payload is
// marshalled here so services hand over plain maps.
func New(eventType string, doctorID, subjectID uuid.UUID, patientID *uuid.UUID, payload map[string]any) Event {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("failed to marshal %s payload: %v", eventType, err)
		} else {
			data = b
		}
	}

	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		DoctorID:  doctorID,
		PatientID: patientID,
		SubjectID: subjectID,
		Payload:   data,
		At:        time.Now().UTC(),
	}
}

// Emit publishes best-effort: a notifier outage must never fail the
// operation that produced the event.
func Emit(ctx context.Context, pub Publisher, ev Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Printf("failed to publish %s for %s: %v", ev.Type, ev.SubjectID, err)
	}
}
