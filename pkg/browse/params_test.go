package browse

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/yourusername/storefront/pkg/errors"
)

func TestDefaultStateEncodesToEmptyQuery(t *testing.T) {
	assert.Equal(t, "", DefaultState().Encode())
	assert.Equal(t, "", State{}.Encode())

	s, err := ParseState(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Page)
	assert.True(t, s.Filter.IsDefault())
}

func TestStateEncodeWritesOnlyNonDefaultFields(t *testing.T) {
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

	s := State{
		Filter: FilterState{
			Search:    "red phone",
			Category:  "smartphones",
			DateRange: &DateRange{From: from, To: to},
		},
		Page: 3,
	}
	v := s.Values()
	assert.Equal(t, "red phone", v.Get(ParamSearch))
	assert.Equal(t, "smartphones", v.Get(ParamCategory))
	assert.Equal(t, "2025-09-01T00:00:00.000Z", v.Get(ParamFrom))
	assert.Equal(t, "2025-09-30T00:00:00.000Z", v.Get(ParamTo))
	assert.Equal(t, "3", v.Get(ParamPage))

	s.Page = 1
	s.Filter.Category = AllCategories
	s.Filter.DateRange.To = time.Time{}
	v = s.Values()
	assert.False(t, v.Has(ParamPage))
	assert.False(t, v.Has(ParamCategory))
	assert.False(t, v.Has(ParamTo))
	assert.True(t, v.Has(ParamFrom))
}

func TestStateRoundTrip(t *testing.T) {
	from := time.Date(2025, 8, 14, 10, 11, 12, int(345*time.Millisecond), time.UTC)
	to := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)

	cases := map[string]State{
		"empty":     DefaultState(),
		"search":    {Filter: FilterState{Search: "a&b=c ü", Category: AllCategories}, Page: 1},
		"category":  {Filter: FilterState{Category: "mens-shirts"}, Page: 1},
		"from only": {Filter: FilterState{Category: AllCategories, DateRange: &DateRange{From: from}}, Page: 1},
		"page":      {Filter: DefaultFilter(), Page: 7},
		"all fields": {
			Filter: FilterState{Search: "phone", Category: "smartphones", DateRange: &DateRange{From: from, To: to}},
			Page:   2,
		},
	}

	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			v, err := url.ParseQuery(want.Encode())
			require.NoError(t, err)

			got, err := ParseState(v)
			require.NoError(t, err)
			assert.Equal(t, want.Page, got.Page)
			assert.True(t, want.Filter.Equal(got.Filter), "want %+v, got %+v", want.Filter, got.Filter)
			assert.Equal(t, want.Encode(), got.Encode())
		})
	}
}

func TestParseStateAcceptsPlainDates(t *testing.T) {
	s, err := ParseQuery("?from=2025-09-01&to=2025-09-03")
	require.NoError(t, err)
	require.NotNil(t, s.Filter.DateRange)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), s.Filter.DateRange.From)
	assert.Equal(t, time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC), s.Filter.DateRange.To)
}

func TestParseStateDropsToWithoutFrom(t *testing.T) {
	s, err := ParseQuery("to=2025-09-03")
	require.NoError(t, err)
	assert.Nil(t, s.Filter.DateRange)
}

func TestParseStateIsLenient(t *testing.T) {
	s, err := ParseQuery("search=desk&page=abc&from=yesterday&to=2025-09-03")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sferrors.ErrInvalidParam))

	// 有效字段保留，无效字段回退为默认值
	assert.Equal(t, "desk", s.Filter.Search)
	assert.Equal(t, 1, s.Page)
	assert.Nil(t, s.Filter.DateRange)

	for _, raw := range []string{"0", "-2", "1.5"} {
		s, err := ParseState(url.Values{ParamPage: {raw}})
		assert.Error(t, err, raw)
		assert.Equal(t, 1, s.Page, raw)
	}
}
