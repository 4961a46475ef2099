package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextAccountID, int64(1))
		c.Set(middleware.ContextUsername, "alice")
		c.Next()
	})
	r.GET("/friends", handler.List)
	r.POST("/friends/request", handler.Request)
	r.POST("/friends/:request_id/accept", handler.Accept)
	r.POST("/friends/:request_id/reject", handler.Reject)
	return r
}

func TestListFriends(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewFriendHandler(friendRepo, accountRepo, nil)
	router := setupFriendRouter(handler)

	friendRepo.On("ListForAccount", mock.Anything, int64(1), models.FriendAccepted).
		Return([]models.FriendEdge{{ID: 4, RequesterID: 2, RecipientID: 1, Status: models.FriendAccepted}}, nil).Once()
	friendRepo.On("ListForAccount", mock.Anything, int64(1), models.FriendPending).
		Return([]models.FriendEdge{
			{ID: 5, RequesterID: 3, RecipientID: 1, Status: models.FriendPending},
			{ID: 6, RequesterID: 1, RecipientID: 4, Status: models.FriendPending},
		}, nil).Once()
	accountRepo.On("GetRefs", mock.Anything, []int64{2}).
		Return([]models.AccountRef{{ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []struct {
			EdgeID  int64             `json:"edge_id"`
			Account models.AccountRef `json:"account"`
		} `json:"friends"`
		Incoming []models.FriendEdge `json:"incoming"`
		Outgoing []models.FriendEdge `json:"outgoing"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 1)
	assert.Equal(t, "bob", resp.Friends[0].Account.Username)
	require.Len(t, resp.Incoming, 1)
	assert.Equal(t, int64(5), resp.Incoming[0].ID)
	require.Len(t, resp.Outgoing, 1)
	assert.Equal(t, int64(6), resp.Outgoing[0].ID)

	friendRepo.AssertExpectations(t)
	accountRepo.AssertExpectations(t)
}

func TestFriendRequestSuccess(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewFriendHandler(friendRepo, accountRepo, nil)
	router := setupFriendRouter(handler)

	accountRepo.On("GetByID", mock.Anything, int64(2)).Return(models.Account{ID: 2}, nil).Once()
	friendRepo.On("FindBetween", mock.Anything, int64(1), int64(2)).
		Return(models.FriendEdge{}, repositories.ErrEdgeNotFound).Once()
	friendRepo.On("Create", mock.Anything, int64(1), int64(2)).
		Return(models.FriendEdge{ID: 9, RequesterID: 1, RecipientID: 2, Status: models.FriendPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"account_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	friendRepo.AssertExpectations(t)
	accountRepo.AssertExpectations(t)
}

func TestFriendRequestSelf(t *testing.T) {
	handler := NewFriendHandler(new(mocks.FriendRepositoryMock), new(mocks.AccountRepositoryMock), nil)
	router := setupFriendRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"account_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFriendRequestAlreadyFriends(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewFriendHandler(friendRepo, accountRepo, nil)
	router := setupFriendRouter(handler)

	accountRepo.On("GetByID", mock.Anything, int64(2)).Return(models.Account{ID: 2}, nil).Once()
	friendRepo.On("FindBetween", mock.Anything, int64(1), int64(2)).
		Return(models.FriendEdge{ID: 4, Status: models.FriendAccepted}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"account_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "already friends", resp["error"])
	friendRepo.AssertExpectations(t)
}

func TestFriendRequestAlreadyPending(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewFriendHandler(friendRepo, accountRepo, nil)
	router := setupFriendRouter(handler)

	accountRepo.On("GetByID", mock.Anything, int64(2)).Return(models.Account{ID: 2}, nil).Once()
	friendRepo.On("FindBetween", mock.Anything, int64(1), int64(2)).
		Return(models.FriendEdge{ID: 4, RequesterID: 2, RecipientID: 1, Status: models.FriendPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"account_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, repositories.ErrRequestPending.Error(), resp["error"])
	friendRepo.AssertExpectations(t)
}

func TestFriendRequestUnknownAccount(t *testing.T) {
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewFriendHandler(new(mocks.FriendRepositoryMock), accountRepo, nil)
	router := setupFriendRouter(handler)

	accountRepo.On("GetByID", mock.Anything, int64(2)).
		Return(models.Account{}, repositories.ErrAccountNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"account_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	accountRepo.AssertExpectations(t)
}

func TestAcceptFriendRequest(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, new(mocks.AccountRepositoryMock), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("Get", mock.Anything, int64(9)).
		Return(models.FriendEdge{ID: 9, RequesterID: 2, RecipientID: 1, Status: models.FriendPending}, nil).Once()
	friendRepo.On("SetStatus", mock.Anything, int64(9), models.FriendAccepted).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/9/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Request models.FriendEdge `json:"request"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.FriendAccepted, resp.Request.Status)
	friendRepo.AssertExpectations(t)
}

func TestRejectFriendRequest(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, new(mocks.AccountRepositoryMock), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("Get", mock.Anything, int64(9)).
		Return(models.FriendEdge{ID: 9, RequesterID: 2, RecipientID: 1, Status: models.FriendPending}, nil).Once()
	friendRepo.On("SetStatus", mock.Anything, int64(9), models.FriendRejected).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/9/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestAcceptOnlyRecipient(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, new(mocks.AccountRepositoryMock), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("Get", mock.Anything, int64(9)).
		Return(models.FriendEdge{ID: 9, RequesterID: 1, RecipientID: 2, Status: models.FriendPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/9/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestAcceptAlreadyResolved(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, new(mocks.AccountRepositoryMock), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("Get", mock.Anything, int64(9)).
		Return(models.FriendEdge{ID: 9, RequesterID: 2, RecipientID: 1, Status: models.FriendAccepted}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/9/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	friendRepo.AssertExpectations(t)
}
