package echoapi

import (
	"net/http"
	"testing"

	"github.com/brainypal/backend/core/user"
)

func Test_authApi_signup(t *testing.T) {
	app := setup(t)

	createUser(t, "Taken", "taken@test.cd", "pwd12345", user.PlanFree, true)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "password mismatch",
			body:     []byte(`{"name":"Jane","email":"jane@test.cd","password":"pwd12345","password_confirm":"nope1234"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "password too short",
			body:     []byte(`{"name":"Jane","email":"jane@test.cd","password":"pwd","password_confirm":"pwd"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "email taken",
			body:     []byte(`{"name":"Jane","email":"taken@test.cd","password":"pwd12345","password_confirm":"pwd12345"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ok",
			body:     []byte(`{"name":"Jane","email":"jane@test.cd","password":"pwd12345","password_confirm":"pwd12345"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/signup", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				return
			}

			var resp AuthResponse
			decodeBody(t, rec, &resp)
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User.Email != "jane@test.cd" {
				t.Errorf("email = %s; want jane@test.cd", resp.User.Email)
			}
			if resp.User.Plan != user.PlanFree {
				t.Errorf("plan = %s; want %s", resp.User.Plan, user.PlanFree)
			}
		})
	}
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	createUser(t, "Inactive", "gone@test.cd", "pwd12345", user.PlanFree, false)

	tests := []httpTest{
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "unknown email", body: []byte(`{"email":"lol@test.cd","password":"pwd12345"}`), wantCode: http.StatusBadRequest},
		{name: "wrong password", body: []byte(`{"email":"awe@test.cd","password":"nope1234"}`), wantCode: http.StatusBadRequest},
		{name: "deactivated account", body: []byte(`{"email":"gone@test.cd","password":"pwd12345"}`), wantCode: http.StatusForbidden},
		{name: "ok", body: []byte(`{"email":"awe@test.cd","password":"pwd12345"}`), wantCode: http.StatusOK},
		{name: "email case-insensitive", body: []byte(`{"email":"AWE@Test.CD","password":"pwd12345"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp AuthResponse
			decodeBody(t, rec, &resp)
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User.ID != usr.ID {
				t.Errorf("user ID = %d; want %d", resp.User.ID, usr.ID)
			}
		})
	}
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/me")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp MeResponse
		decodeBody(t, rec, &resp)
		if resp.User.ID != usr.ID {
			t.Errorf("user ID = %d; want %d", resp.User.ID, usr.ID)
		}
		if resp.Limits.DailyGenerations != user.LimitsFor(user.PlanFree).DailyGenerations {
			t.Errorf("limits = %+v; want free plan limits", resp.Limits)
		}
	})
}

func Test_authApi_updateMe(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "invalid email", body: []byte(`{"email":"lol"}`), wantCode: http.StatusBadRequest},
		{name: "password without confirm", body: []byte(`{"password":"n3wpwd123"}`), wantCode: http.StatusBadRequest},
		{name: "rename", body: []byte(`{"name":"New Name"}`), wantCode: http.StatusOK, extra: "New Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/auth/me", token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp user.User
			decodeBody(t, rec, &resp)
			if want := tt.extra.(string); resp.Name != want {
				t.Errorf("name = %s; want %s", resp.Name, want)
			}
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp TokenResponse
		decodeBody(t, rec, &resp)
		if resp.Token == "" {
			t.Error("expected a token")
		}
	})
}

func Test_authApi_resetPassword(t *testing.T) {
	app := setup(t)

	createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)

	tests := []httpTest{
		{name: "invalid email", body: []byte(`{"email":"lol"}`), wantCode: http.StatusBadRequest},
		{name: "unknown email still succeeds", body: []byte(`{"email":"lol@test.cd"}`), wantCode: http.StatusOK},
		{name: "known email", body: []byte(`{"email":"awe@test.cd"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp SuccessResponse
			decodeBody(t, rec, &resp)
			if resp.Success == "" {
				t.Error("expected a success message")
			}
		})
	}
}

func Test_authApi_confirmPasswordReset(t *testing.T) {
	app := setup(t)

	createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)

	tests := []httpTest{
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{
			name:     "garbage token",
			body:     []byte(`{"uid":"lol","token":"lol","password":"n3wpwd123","password_confirm":"n3wpwd123"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset-confirm", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}
