// Package remote defines the contract between the editor and the persistence
// service, with an HTTP client and an in-process implementation.
//
// Sync calls always carry the full collection. The service replies with the
// server id of every row it holds for the uids it was sent; rows missing from
// the payload are deleted on the server side.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
)

// ErrNotFound is returned when the agreement id is unknown.
var ErrNotFound = errors.New("remote: agreement not found")

// Method names, used for call counting and failure injection.
const (
	MethodGetAgreement    = "getAgreement"
	MethodSyncSigners     = "syncSigners"
	MethodSyncInputFields = "syncInputFields"
	MethodUpdateTitle     = "updateAgreementTitle"
	MethodUpdateDates     = "updateAgreementDateSequence"
)

// Methods lists every method in a stable order.
var Methods = []string{
	MethodGetAgreement,
	MethodSyncSigners,
	MethodSyncInputFields,
	MethodUpdateTitle,
	MethodUpdateDates,
}

// Agreement is the full state of one agreement as held by the service.
type Agreement struct {
	Metadata    model.Metadata         `json:"metadata"`
	Signers     []model.Signer         `json:"signers"`
	InputFields []model.FieldPlacement `json:"input_fields"`
	PageCount   int                    `json:"page_count"`
}

// Service is the remote persistence service.
type Service interface {
	GetAgreement(ctx context.Context, id string) (*Agreement, error)
	SyncSigners(ctx context.Context, id string, signers []model.Signer) (identity.IDMap, error)
	SyncInputFields(ctx context.Context, id string, fields []model.FieldPlacement) (identity.IDMap, error)
	UpdateAgreementTitle(ctx context.Context, id string, title string) error
	UpdateAgreementDateSequence(ctx context.Context, id string, dates model.DateSequence) error
}

// CreateRequest is the body of POST /agreements.
type CreateRequest struct {
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// CreateResponse is the reply to POST /agreements.
type CreateResponse struct {
	ID string `json:"id"`
}

// IDsResponse is the reply to a collection sync.
type IDsResponse struct {
	IDs identity.IDMap `json:"ids"`
}

// TitleRequest is the body of PUT /agreements/{id}/title.
type TitleRequest struct {
	Title string `json:"title"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusError is returned by Client for non-success responses other than 404.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote: status %d", e.Status)
}
