package postgres

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid history cursor")

// pageCursor pins a position in the (created_at, id) sort order. The token
// handed to clients is base64("<unix-micros>:<message-id>"); timestamptz
// stores microseconds, so the timestamp round-trips without loss.
type pageCursor struct {
	createdAt time.Time
	id        string
}

func (c pageCursor) token() string {
	raw := strconv.FormatInt(c.createdAt.UnixMicro(), 10) + ":" + c.id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// parsePageToken returns nil for the empty token (first page) and
// ErrInvalidCursor for anything it cannot read back.
func parsePageToken(s string) (*pageCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidCursor, err)
	}
	return &pageCursor{createdAt: time.UnixMicro(micros).UTC(), id: id}, nil
}
