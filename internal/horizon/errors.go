package horizon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ResultCodes holds the structured rejection reasons Horizon attaches to a
// failed transaction submission.
type ResultCodes struct {
	Transaction string   `json:"transaction"`
	Operations  []string `json:"operations"`
}

// Error is a non-2xx Horizon response, carrying the parsed problem document.
type Error struct {
	StatusCode  int
	Detail      string
	ResultCodes *ResultCodes
}

func (e *Error) Error() string {
	if e.ResultCodes != nil && e.ResultCodes.Transaction != "" {
		return fmt.Sprintf("horizon: HTTP %d: %s (%s)", e.StatusCode, e.Detail, e.ResultCodes.Transaction)
	}
	return fmt.Sprintf("horizon: HTTP %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a Horizon 404, i.e. the requested resource
// (typically an unfunded account) does not exist on the ledger.
func IsNotFound(err error) bool {
	var herr *Error
	return errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound
}

// problem mirrors Horizon's application/problem+json error body.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Extras struct {
		ResultCodes *ResultCodes `json:"result_codes"`
	} `json:"extras"`
}

func parseProblem(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Detail: string(body)}

	var p problem
	if err := json.Unmarshal(body, &p); err == nil {
		if p.Detail != "" {
			e.Detail = p.Detail
		} else if p.Title != "" {
			e.Detail = p.Title
		}
		e.ResultCodes = p.Extras.ResultCodes
	}
	return e
}
