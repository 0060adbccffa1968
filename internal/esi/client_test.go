package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/retry"
	"github.com/eve-companion/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(&config.ESIConfig{
		BaseURL:           baseURL,
		UserAgent:         "test",
		RequestsPerSecond: 1000,
		Burst:             1000,
		RequestTimeout:    5 * time.Second,
	})
	// Keep failure tests fast.
	c.retryCfg = &retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	return c
}

func TestCharacterSkillsDecodesAndAuthenticates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/characters/42/skills/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(SkillsResponse{
			Skills: []SkillEntry{
				{SkillID: 3300, ActiveSkillLevel: 5, TrainedSkillLevel: 5, SkillPointsInSkill: 256000},
			},
			TotalSP:       6_000_000,
			UnallocatedSP: 150_000,
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).CharacterSkills(context.Background(), 42, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(6_000_000), resp.TotalSP)
	require.Len(t, resp.Skills, 1)
	assert.Equal(t, int32(3300), resp.Skills[0].SkillID)
}

func TestRegionContractsFollowsAllPages(t *testing.T) {
	const totalPages = 3
	var pagesSeen [totalPages]int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contracts/public/10000066/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		pageNum := 1
		if p := r.URL.Query().Get("page"); p != "" {
			fmt.Sscanf(p, "%d", &pageNum)
		}
		require.True(t, pageNum >= 1 && pageNum <= totalPages)
		atomic.AddInt32(&pagesSeen[pageNum-1], 1)

		w.Header().Set("X-Pages", fmt.Sprintf("%d", totalPages))
		json.NewEncoder(w).Encode([]PublicContract{
			{ContractID: int64(pageNum*100 + 1), Type: "item_exchange"},
			{ContractID: int64(pageNum*100 + 2), Type: "auction"},
		})
	}))
	defer server.Close()

	contracts, err := newTestClient(server.URL).RegionContracts(context.Background(), 10000066)
	require.NoError(t, err)
	assert.Len(t, contracts, totalPages*2)
	for i := range pagesSeen {
		assert.Equal(t, int32(1), pagesSeen[i], "page %d fetched exactly once", i+1)
	}
	assert.Equal(t, int64(101), contracts[0].ContractID)
	assert.Equal(t, int64(302), contracts[5].ContractID)
}

func TestRegionOrdersFailsWhollyOnPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("X-Pages", "3")
		json.NewEncoder(w).Encode([]OrderEntry{{OrderID: 1, TypeID: 34}})
	}))
	defer server.Close()

	var collected []OrderEntry
	err := newTestClient(server.URL).RegionOrders(context.Background(), 10000002,
		func(items []OrderEntry) { collected = append(collected, items...) })

	require.Error(t, err)
	assert.Equal(t, syncerr.KindTransient, syncerr.KindOf(err))
	// Page 1 was streamed before the failure; the caller's error return is
	// what keeps partial data out of storage.
	assert.Len(t, collected, 1)
}

func TestUnauthorizedIsCredentialError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CharacterSkills(context.Background(), 42, "expired")
	require.Error(t, err)
	assert.True(t, syncerr.IsCredential(err))
}

func TestNotFoundIsPermanentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ContractItems(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, syncerr.IsPermanent(err))
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]HistoryEntry{{Date: "2026-08-28", Average: 5.5}})
	}))
	defer server.Close()

	history, err := newTestClient(server.URL).RegionMarketHistory(context.Background(), 10000002, 34)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPermanentErrorDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RegionMarketHistory(context.Background(), 10000002, 34)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHistoryQueryKeepsTypeIDWithPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "34", r.URL.Query().Get("type_id"))
		json.NewEncoder(w).Encode([]HistoryEntry{})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RegionMarketHistory(context.Background(), 10000002, 34)
	require.NoError(t, err)
}
