package erp

import (
	"encoding/json"

	"github.com/septivank/attendance-sync-worker/internal/event"
)

// Employee is sent alongside events so the ERP can resolve card numbers.
type Employee struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Card      string `yaml:"card"`
}

// MarshalJSON encodes the employee as [first_name, last_name, card].
func (e Employee) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{e.FirstName, e.LastName, e.Card})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// UploadBatch is the body of one upload request.
type UploadBatch struct {
	Employees []Employee    `json:"employees"`
	Events    []event.Event `json:"events"`
}
