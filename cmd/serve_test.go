package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundsight/prospector/internal/gauntlet"
	"github.com/groundsight/prospector/internal/model"
	"github.com/groundsight/prospector/internal/store"
)

type fakeStore struct {
	store.Store
	prospect *model.Prospect
}

func (f *fakeStore) GetProspect(ctx context.Context, companyNumber string) (*model.Prospect, error) {
	return f.prospect, nil
}

func postGauntlet(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/gauntlet", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGauntletWebhook_RunSurvivesBaseContextCancel(t *testing.T) {
	baseCtx, cancel := context.WithCancel(context.Background())

	runCtxs := make(chan context.Context, 1)
	run := func(ctx context.Context, companyNumber string) (*gauntlet.RunResult, error) {
		runCtxs <- ctx
		return &gauntlet.RunResult{CompanyNumber: companyNumber}, nil
	}

	handler := gauntletWebhookHandler(baseCtx, &fakeStore{}, run)
	rec := postGauntlet(handler, `{"company_number":"01234567"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var runCtx context.Context
	select {
	case runCtx = <-runCtxs:
	case <-time.After(time.Second):
		t.Fatal("run was not dispatched")
	}

	cancel()
	assert.NoError(t, runCtx.Err(), "dispatched run must not inherit cancellation")
}

func TestGauntletWebhook_RequiresIdentifier(t *testing.T) {
	handler := gauntletWebhookHandler(context.Background(), &fakeStore{}, nil)
	rec := postGauntlet(handler, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGauntletWebhook_ResolvesProspectReference(t *testing.T) {
	st := &fakeStore{prospect: &model.Prospect{CompanyNumber: "07654321"}}

	companyNumbers := make(chan string, 1)
	run := func(ctx context.Context, companyNumber string) (*gauntlet.RunResult, error) {
		companyNumbers <- companyNumber
		return &gauntlet.RunResult{CompanyNumber: companyNumber}, nil
	}

	handler := gauntletWebhookHandler(context.Background(), st, run)
	rec := postGauntlet(handler, `{"prospect_id":"07654321"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case got := <-companyNumbers:
		assert.Equal(t, "07654321", got)
	case <-time.After(time.Second):
		t.Fatal("run was not dispatched")
	}
}

func TestGauntletWebhook_UnknownProspect(t *testing.T) {
	handler := gauntletWebhookHandler(context.Background(), &fakeStore{}, nil)
	rec := postGauntlet(handler, `{"prospect_id":"00000000"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
