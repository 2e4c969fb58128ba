package pagination

import (
	"encoding/base64"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-tracker/internal/domain"
)

type item struct {
	n         int
	createdAt time.Time
}

func itemCreatedAt(i item) time.Time { return i.createdAt }

func TestCursor_RoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		// years 1970..2200 with nanosecond precision
		ts := time.Unix(0, rng.Int63n(7258118400)*int64(time.Second)+rng.Int63n(int64(time.Second))).UTC()

		decoded, err := DecodeCursor(EncodeCursor(ts))
		require.NoError(t, err)
		require.True(t, ts.Equal(decoded), "round trip %s -> %s", ts, decoded)
	}
}

func TestCursor_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	ts := time.Date(2024, 3, 1, 10, 0, 0, 123, loc)

	decoded, err := DecodeCursor(EncodeCursor(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(decoded))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("%%%")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = DecodeCursor(base64.RawURLEncoding.EncodeToString([]byte("yesterday")))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Nil(t, q.Before)
	assert.Equal(t, DefaultLimit+1, q.Fetch())

	q, err = ParseQuery("", 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, q.Limit)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	q, err = ParseQuery(EncodeCursor(ts), 5)
	require.NoError(t, err)
	require.NotNil(t, q.Before)
	assert.True(t, ts.Equal(*q.Before))
}

func TestPaginate_Empty(t *testing.T) {
	page := Paginate([]item(nil), 100, itemCreatedAt)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasNextPage)
	assert.Nil(t, page.EndCursor)
}

// fetchBefore mimics the store: newest first, strictly older than before, at most n.
func fetchBefore(all []item, before *time.Time, n int) []item {
	var out []item
	for _, it := range all {
		if before != nil && !it.createdAt.Before(*before) {
			continue
		}
		out = append(out, it)
		if len(out) == n {
			break
		}
	}
	return out
}

func TestPaginate_TwoPages(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	all := make([]item, 150)
	for i := range all {
		// item #1 is the newest
		all[i] = item{n: i + 1, createdAt: base.Add(-time.Duration(i) * time.Minute)}
	}

	q, err := ParseQuery("", 100)
	require.NoError(t, err)
	first := Paginate(fetchBefore(all, q.Before, q.Fetch()), q.Limit, itemCreatedAt)

	require.Len(t, first.Items, 100)
	assert.True(t, first.HasNextPage)
	require.NotNil(t, first.EndCursor)
	end, err := DecodeCursor(*first.EndCursor)
	require.NoError(t, err)
	assert.True(t, all[99].createdAt.Equal(end))
	assert.Equal(t, 100, first.Items[99].n)

	q, err = ParseQuery(*first.EndCursor, 100)
	require.NoError(t, err)
	second := Paginate(fetchBefore(all, q.Before, q.Fetch()), q.Limit, itemCreatedAt)

	require.Len(t, second.Items, 50)
	assert.False(t, second.HasNextPage)
	assert.Equal(t, 101, second.Items[0].n)
	assert.Equal(t, 150, second.Items[49].n)
	require.NotNil(t, second.EndCursor)
}
