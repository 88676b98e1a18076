package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
	"github.com/vasiliy-maslov/groupbuy-service/internal/handler"
	"github.com/vasiliy-maslov/groupbuy-service/internal/user"
)

func TestUserHandler_Register(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		svcErr   error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "success",
			body:     map[string]any{"name": "Jane Doe", "email": "jane@example.com", "password": "password123"},
			wantCode: http.StatusCreated,
		},
		{
			name:     "email_exists",
			body:     map[string]any{"name": "Jane Doe", "email": "jane@example.com", "password": "password123"},
			svcErr:   user.ErrEmailExists,
			wantCode: http.StatusConflict,
			wantMsg:  "email",
		},
		{
			name:     "short_password",
			body:     map[string]any{"name": "Jane Doe", "email": "jane@example.com", "password": "short"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			if tt.wantCode != http.StatusBadRequest {
				session := &user.Session{Token: "signed", ExpiresAt: time.Now().Add(time.Hour), User: &user.User{ID: uuid.Must(uuid.NewV4()), Name: "Jane Doe"}}
				if tt.svcErr != nil {
					session = nil
				}
				svc.On("Register", mock.Anything, mock.MatchedBy(func(in user.RegisterInput) bool {
					return in.Email == "jane@example.com" && in.Password == "password123"
				})).Return(session, tt.svcErr).Once()
			}

			router := chi.NewRouter()
			handler.NewUserHandler(svc).RegisterPublicRoutes(router)
			rr := doJSON(t, router, http.MethodPost, "/auth/register", tt.body)
			require.Equal(t, tt.wantCode, rr.Code)

			if tt.wantMsg != "" {
				assert.Contains(t, errorMessage(t, rr), tt.wantMsg)
			} else {
				var got user.Session
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, "signed", got.Token)
				assert.Equal(t, "Jane Doe", got.User.Name)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_LoginRejected(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Login", mock.Anything, user.LoginInput{Email: "jane@example.com", Password: "wrong"}).
		Return(nil, user.ErrInvalidCredentials).Once()

	router := chi.NewRouter()
	handler.NewUserHandler(svc).RegisterPublicRoutes(router)
	rr := doJSON(t, router, http.MethodPost, "/auth/login", user.LoginInput{Email: "jane@example.com", Password: "wrong"})

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_Me(t *testing.T) {
	id := auth.Identity{UserID: uuid.Must(uuid.NewV4())}
	svc := new(MockUserService)
	svc.On("GetByID", mock.Anything, id.UserID).Return(&user.User{ID: id.UserID, Name: "Jane", PasswordHash: "secret-hash"}, nil).Once()

	router := chi.NewRouter()
	router.With(asCaller(id)).Group(handler.NewUserHandler(svc).RegisterUserRoutes)
	rr := doJSON(t, router, http.MethodGet, "/me", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
	svc.AssertExpectations(t)
}

func TestUserHandler_MeWithoutIdentity(t *testing.T) {
	svc := new(MockUserService)
	router := chi.NewRouter()
	handler.NewUserHandler(svc).RegisterUserRoutes(router)

	rr := doJSON(t, router, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
