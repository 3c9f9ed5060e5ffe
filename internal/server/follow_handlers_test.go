package server

import (
	"net/http"
	"testing"

	"foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	k := api.stock()
	alice := api.signup("alice")
	bob := api.signup("bob")
	for _, name := range []string{"Pancakes", "Omelette", "Porridge"} {
		api.createRecipe(bob.Token, api.recipePayload(name,
			[]uint{k.breakfast.ID}, [2]int{int(k.flour.ID), 100}))
	}
	path := pathf("/api/users/%d/subscribe/", bob.ID)

	status, raw := api.do(http.MethodPost, path+"?recipes_limit=2", nil, alice.Token)
	require.Equal(t, http.StatusCreated, status, string(raw))
	var author models.AuthorWithRecipes
	api.decode(raw, &author)
	assert.Equal(t, bob.ID, author.ID)
	assert.True(t, author.IsSubscribed)
	assert.Len(t, author.Recipes, 2)
	assert.EqualValues(t, 3, author.RecipesCount)

	status, raw = api.do(http.MethodPost, path, nil, alice.Token)
	require.Equal(t, http.StatusBadRequest, status)
	var body errorBody
	api.decode(raw, &body)
	assert.Equal(t, models.CodeAlreadyFollowing, body.Code)

	status, raw = api.do(http.MethodPost, pathf("/api/users/%d/subscribe/", alice.ID), nil, alice.Token)
	require.Equal(t, http.StatusBadRequest, status)
	api.decode(raw, &body)
	assert.Equal(t, models.CodeSelfFollow, body.Code)

	status, _ = api.do(http.MethodPost, "/api/users/9999/subscribe/", nil, alice.Token)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodDelete, path, nil, alice.Token)
	require.Equal(t, http.StatusNoContent, status)

	status, raw = api.do(http.MethodDelete, path, nil, alice.Token)
	require.Equal(t, http.StatusBadRequest, status)
	api.decode(raw, &body)
	assert.Equal(t, models.CodeNotFollowing, body.Code)
}

func TestSubscriptionsList(t *testing.T) {
	api := newTestAPI(t, nil)
	k := api.stock()
	alice := api.signup("alice")
	bob := api.signup("bob")
	carol := api.signup("carol")
	for i := 0; i < 3; i++ {
		api.createRecipe(bob.Token, api.recipePayload(pathf("Bob %d", i),
			[]uint{k.dinner.ID}, [2]int{int(k.sugar.ID), 10}))
	}
	for _, author := range []registered{bob, carol} {
		status, _ := api.do(http.MethodPost, pathf("/api/users/%d/subscribe/", author.ID), nil, alice.Token)
		require.Equal(t, http.StatusCreated, status)
	}

	status, raw := api.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=1", nil, alice.Token)
	require.Equal(t, http.StatusOK, status, string(raw))
	var page models.Page[models.AuthorWithRecipes]
	api.decode(raw, &page)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	for _, a := range page.Results {
		assert.True(t, a.IsSubscribed)
		assert.LessOrEqual(t, len(a.Recipes), 1)
		if a.ID == bob.ID {
			assert.EqualValues(t, 3, a.RecipesCount)
		}
	}

	status, _ = api.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=0", nil, alice.Token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodGet, "/api/users/subscriptions/", nil, "")
	assert.Equal(t, http.StatusForbidden, status)
}
