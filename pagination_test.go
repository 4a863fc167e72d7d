package mastodon_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/test_helpers"
)

func statusIDs(t *testing.T, page *entity.List) []int {
	t.Helper()
	ids := make([]int, 0, page.Len())
	for _, e := range page.Entities() {
		id, err := strconv.Atoi(string(types.Status{Entity: e}.ID()))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestFetchNext_WalksWholeTimeline(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(30)
	ctx := context.Background()

	page, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)

	var seen []int
	pages := 0
	for page != nil {
		require.Equal(t, 5, page.Len())
		pages++
		seen = append(seen, statusIDs(t, page)...)
		page, err = tc.FetchNext(ctx, page)
		require.NoError(t, err)
	}

	assert.Equal(t, 6, pages)
	require.Len(t, seen, 30)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i], seen[i-1], "ids must strictly decrease")
	}
	assert.Equal(t, 30, seen[0])
	assert.Equal(t, 1, seen[len(seen)-1])

	// The last page carried no forward cursor, so nothing was requested for a 7th.
	assert.NoError(t, tc.MockServer().AssertRequestCount("/api/v1/timelines/home", 6))
}

func TestFetchNext_KeepsOriginalParameters(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(12)
	ctx := context.Background()

	page, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 4})
	require.NoError(t, err)
	_, err = tc.FetchNext(ctx, page)
	require.NoError(t, err)

	last, err := tc.MockServer().GetLastRequest("/api/v1/timelines/home")
	require.NoError(t, err)
	assert.Equal(t, "4", last.Query.Get("limit"))
	assert.Equal(t, "9", last.Query.Get("max_id"))
	assert.Empty(t, last.Query.Get("min_id"))
}

func TestFetchPrevious(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(10)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)
	second, err := tc.FetchNext(ctx, first)
	require.NoError(t, err)
	require.Equal(t, []int{5, 4, 3, 2, 1}, statusIDs(t, second))

	back, err := tc.FetchPrevious(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 9, 8, 7, 6}, statusIDs(t, back))

	last, err := tc.MockServer().GetLastRequest("/api/v1/timelines/home")
	require.NoError(t, err)
	assert.Equal(t, "5", last.Query.Get("min_id"))
	assert.Empty(t, last.Query.Get("max_id"))
}

func TestFetchNext_NoCursor(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		page any
	}{
		{name: "nil", page: nil},
		{name: "list without cursors", page: &entity.List{Items: []any{}}},
		{name: "nil list", page: (*entity.List)(nil)},
		{name: "entity without cursor", page: entity.NewGeneric(map[string]any{"id": "1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := tc.FetchNext(ctx, tt.page)
			assert.NoError(t, err)
			assert.Nil(t, page)
		})
	}
	assert.Empty(t, tc.MockServer().GetRequestLog())
}

func TestFetchNext_AfterExhaustion(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(10)
	ctx := context.Background()

	page, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)
	page, err = tc.FetchNext(ctx, page)
	require.NoError(t, err)
	require.Equal(t, 5, page.Len())

	exhausted, err := tc.FetchNext(ctx, page)
	require.NoError(t, err)
	require.Nil(t, exhausted)

	// The exhausted result is itself valid input.
	again, err := tc.FetchNext(ctx, exhausted)
	assert.NoError(t, err)
	assert.Nil(t, again)
	prev, err := tc.FetchPrevious(ctx, exhausted)
	assert.NoError(t, err)
	assert.Nil(t, prev)
	assert.NoError(t, tc.MockServer().AssertRequestCount("/api/v1/timelines/home", 2))
}

func TestFetchNext_RejectsOtherValues(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	ctx := context.Background()

	for _, page := range []any{42, "next", map[string]any{"id": "1"}} {
		_, err := tc.FetchNext(ctx, page)
		var argErr *pkgerrs.IllegalArgumentError
		assert.ErrorAs(t, err, &argErr, "%T", page)
	}
}

func TestFetchNext_AcceptsCursorShapes(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(10)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, first.Next)
	entities := first.Entities()

	tests := []struct {
		name string
		page any
	}{
		{name: "list value", page: *first},
		{name: "cursor pointer", page: first.Next},
		{name: "cursor value", page: *first.Next},
		{name: "last entity", page: entities[len(entities)-1]},
		{name: "map", page: first.Next.Map()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := tc.FetchNext(ctx, tt.page)
			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Equal(t, []int{5, 4, 3, 2, 1}, statusIDs(t, page))
		})
	}
}

func TestFetchNext_EntityCarriesStatusType(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(4)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 2})
	require.NoError(t, err)
	entities := first.Entities()

	page, err := tc.FetchNext(ctx, entities[len(entities)-1])
	require.NoError(t, err)
	require.Equal(t, 2, page.Len())
	for _, e := range page.Entities() {
		assert.Equal(t, types.SchemaStatus, e.SchemaName())
	}
}

func TestFetchNext_ResumesPersistedPage(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(15)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)

	data, err := entity.ToJSON(first)
	require.NoError(t, err)
	restored, err := entity.FromJSON(data)
	require.NoError(t, err)

	list, ok := restored.(*entity.List)
	require.True(t, ok, "restored %T", restored)
	assert.True(t, entity.Equal(first, list))

	page, err := tc.FetchNext(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 9, 8, 7, 6}, statusIDs(t, page))
	for _, e := range page.Entities() {
		assert.Equal(t, types.SchemaStatus, e.SchemaName())
	}
}

func TestFetchRemaining(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(23)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 10})
	require.NoError(t, err)

	all, err := tc.FetchRemaining(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 23, all.Len())
	assert.Nil(t, all.Next)
	assert.Equal(t, first.Prev, all.Prev)

	all, err = tc.FetchRemaining(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, all)
}

func TestFetchRemaining_StopsOnEmptyPage(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	ctx := context.Background()

	cursor := &entity.Cursor{Method: "GET", Endpoint: "api/v1/timelines/home", Params: map[string]any{"max_id": int64(1)}}
	first := &entity.List{Type: types.StatusListType, Items: []any{}, Next: cursor}
	tc.MockServer().SetResponse("/api/v1/timelines/home", &test_helpers.MockResponse{
		Body:    "[]",
		Headers: map[string]string{"Link": `<` + tc.MockServer().URL() + `/api/v1/timelines/home?max_id=1>; rel="next"`},
	})

	all, err := tc.FetchRemaining(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 0, all.Len())
	assert.NoError(t, tc.MockServer().AssertRequestCount("/api/v1/timelines/home", 1))
}

func TestPageIterator(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(9)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 4})
	require.NoError(t, err)

	it := tc.Pages(ctx, first)
	var sizes []int
	for it.HasNext() {
		page, err := it.Next()
		require.NoError(t, err)
		if page == nil {
			break
		}
		sizes = append(sizes, page.Len())
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, []int{4, 4, 1}, sizes)

	page, err := it.Next()
	assert.NoError(t, err)
	assert.Nil(t, page)
}

func TestPageIterator_Collect(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(20)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)

	items, err := tc.Pages(ctx, first).Collect(12)
	require.NoError(t, err)
	assert.Len(t, items, 12)
	// Three pages were needed for twelve items.
	assert.NoError(t, tc.MockServer().AssertRequestCount("/api/v1/timelines/home", 3))

	items, err = tc.Pages(ctx, nil).Collect(0)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestPageIterator_Error(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetStatuses(10)
	ctx := context.Background()

	first, err := tc.HomeTimeline(ctx, &types.Pagination{Limit: 5})
	require.NoError(t, err)
	tc.MockServer().SetupError("/api/v1/timelines/home", 500, "boom")

	it := tc.Pages(ctx, first)
	_, err = it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.Error(t, err)
	assert.True(t, pkgerrs.IsServerError(err))
	assert.False(t, it.HasNext())
	assert.Equal(t, err, it.Err())
}
