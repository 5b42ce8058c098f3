package browse

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sferrors "github.com/yourusername/storefront/pkg/errors"
	"github.com/yourusername/storefront/pkg/model"
)

// URL query parameter names.
const (
	ParamSearch   = "search"
	ParamCategory = "category"
	ParamFrom     = "from"
	ParamTo       = "to"
	ParamPage     = "page"
)

// dateOnly is the plain date form accepted for from/to in addition to ISOLayout.
const dateOnly = "2006-01-02"

// State is the navigable browsing state mirrored into the URL query.
//
// State 是映射到URL查询中的可导航浏览状态。
type State struct {
	Filter FilterState
	Page   int
}

// DefaultState returns the state of a fresh page load.
func DefaultState() State {
	return State{Filter: DefaultFilter(), Page: 1}
}

// Values encodes the non-default fields of s.
//
// Values 编码s中的非默认字段。
//
// Returns:
//   - url.Values: search, category, from, to and page, each present only when set
func (s State) Values() url.Values {
	f := s.Filter.Normalize()
	v := url.Values{}

	if f.Search != "" {
		v.Set(ParamSearch, f.Search)
	}
	if f.Category != AllCategories {
		v.Set(ParamCategory, f.Category)
	}
	if f.DateRange != nil {
		v.Set(ParamFrom, formatDate(f.DateRange.From))
		if f.DateRange.HasTo() {
			v.Set(ParamTo, formatDate(f.DateRange.To))
		}
	}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	return v
}

// Encode returns the URL query string for s, without a leading "?".
// The default state encodes to "".
func (s State) Encode() string {
	return s.Values().Encode()
}

// ParseState decodes a URL query into a State. Absent parameters take their
// defaults. Decoding is lenient: an unparseable page, from or to falls back to
// its default and the problem is reported through the returned error, which
// wraps errors.ErrInvalidParam. The returned State is always usable.
//
// ParseState 将URL查询解码为State。缺失的参数使用默认值。
// 解码是宽松的：无法解析的page、from或to回退为默认值，
// 问题通过返回的错误报告（包装errors.ErrInvalidParam）。返回的State总是可用的。
func ParseState(v url.Values) (State, error) {
	s := DefaultState()
	var errs []error

	s.Filter.Search = v.Get(ParamSearch)
	if c := v.Get(ParamCategory); c != "" {
		s.Filter.Category = c
	}

	if raw := v.Get(ParamPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%w: page=%q", sferrors.ErrInvalidParam, raw))
		} else {
			s.Page = n
		}
	}

	var from, to time.Time
	if raw := v.Get(ParamFrom); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: from=%q", sferrors.ErrInvalidParam, raw))
		} else {
			from = t
		}
	}
	if raw := v.Get(ParamTo); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: to=%q", sferrors.ErrInvalidParam, raw))
		} else {
			to = t
		}
	}
	// 没有from的to被丢弃
	if !from.IsZero() {
		s.Filter.DateRange = &DateRange{From: from, To: to}
	}

	return s, errors.Join(errs...)
}

// ParseQuery is ParseState over a raw query string. A leading "?" is allowed.
func ParseQuery(query string) (State, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		s, perr := ParseState(v)
		return s, errors.Join(fmt.Errorf("%w: %v", sferrors.ErrInvalidParam, err), perr)
	}
	return ParseState(v)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(model.ISOLayout)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
