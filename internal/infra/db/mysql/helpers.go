package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

// encodeResult stores a nil payload as an empty object; result_json is NOT NULL.
func encodeResult(p report.Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func decodeResult(raw []byte) (report.Payload, error) {
	out := report.Payload{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode result_json: %w", err)
	}
	return out, nil
}

// affectedOne maps a zero-row write to sql.ErrNoRows.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
