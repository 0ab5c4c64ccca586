package notify

import (
	"strings"

	"github.com/hackgods/dermaclinic-admin/internal/db"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// AdminRecipientID is the shared inbox every staff member reads.
const AdminRecipientID = "admin"

type Recipient struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// InferRecipient works out who should hear about a chat message. A message
// from the chat's patient goes to the admin inbox, a message from staff goes
// to the patient. Any other sender yields no recipient.
func InferRecipient(chat db.Fields, senderID string) (Recipient, bool) {
	patientID := strings.TrimSpace(chat.String("patientId"))
	userID := strings.TrimSpace(chat.String("userId"))

	if senderID != "" && (senderID == patientID || senderID == userID) {
		return Recipient{ID: AdminRecipientID, Role: RoleAdmin}, true
	}

	if senderID == string(RoleAdmin) || senderID == string(RoleDoctor) {
		id := patientID
		if id == "" {
			id = userID
		}
		if id == "" {
			return Recipient{}, false
		}
		return Recipient{ID: id, Role: RolePatient}, true
	}

	return Recipient{}, false
}
