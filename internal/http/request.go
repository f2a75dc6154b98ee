package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
)

const (
	userHeader   = "X-User-ID"
	maxBodyBytes = 64 << 10
	dateLayout   = "2006-01-02"
)

var errMissingUser = errors.New("missing " + userHeader + " header")

// userID reads the caller set by the authenticating proxy.
func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(userHeader))
	if id == "" {
		return "", errMissingUser
	}
	return id, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

// jsonAmount accepts an amount as a JSON string or number and keeps its
// exact text.
type jsonAmount string

func (a *jsonAmount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = jsonAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = jsonAmount(n.String())
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input is nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return &t, nil
}

// parsePeriod reads YYYY-MM. Empty input is the zero Period.
func parsePeriod(s string) (core.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Period{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid month %q: use YYYY-MM", s)
	}
	return core.PeriodOf(t), nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

// parseFilter builds a TransactionFilter from the listing query string.
func parseFilter(user string, q url.Values) (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		UserID:   user,
		Type:     core.TransactionType(strings.ToUpper(strings.TrimSpace(q.Get("type")))),
		WalletID: strings.TrimSpace(q.Get("wallet")),
		Period:   core.PeriodKind(strings.ToLower(strings.TrimSpace(q.Get("period")))),
	}
	switch f.Period {
	case "", core.PeriodMonth, core.PeriodYear, core.PeriodCustom, core.PeriodAll:
	default:
		return f, fmt.Errorf("invalid period %q", f.Period)
	}

	var err error
	for key, dst := range map[string]*int{"year": &f.Year, "month": &f.Month, "limit": &f.Limit, "offset": &f.Offset} {
		if *dst, err = queryInt(q, key); err != nil {
			return f, err
		}
	}
	if start, err := parseDate(q.Get("start")); err != nil {
		return f, err
	} else if start != nil {
		f.Start = *start
	}
	if end, err := parseDate(q.Get("end")); err != nil {
		return f, err
	} else if end != nil {
		// Inclusive end of day.
		f.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}
