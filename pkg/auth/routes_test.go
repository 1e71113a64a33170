package auth

import "testing"

func TestRoutePolicy_IsPublic(t *testing.T) {
	rp := DefaultRoutePolicy()

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{"GET", "/", true},
		{"GET", "/about", true},
		{"GET", "/about/team", true},
		{"GET", "/news", true},
		{"GET", "/newsletter", false},
		{"GET", "/members/42", true},
		{"GET", "/login", true},
		{"GET", "/loginx", false},
		{"GET", "/static/logo.png", true},
		{"GET", "/favicon.ico", true},
		{"GET", "/metrics", true},
		{"GET", "/dashboard", false},
		{"GET", "/admin", false},
		{"GET", "/profile", false},

		{"POST", "/api/auth/login", true},
		{"PUT", "/api/auth/register", true},
		{"POST", "/api/auth/logout", true},
		{"GET", "/api/auth/me", false},
		{"GET", "/api/auth", false},
		{"GET", "/api/news", true},
		{"HEAD", "/api/gallery/7", true},
		{"POST", "/api/news", false},
		{"DELETE", "/api/events/1", false},
		{"GET", "/api/newsletter", false},
		{"GET", "/api", false},
		{"GET", "/api/admin/members/pending", false},
		// API paths never fall back to the page allow-list.
		{"GET", "/api/about", false},
	}

	for _, tt := range tests {
		if got := rp.IsPublic(tt.method, tt.path); got != tt.want {
			t.Errorf("IsPublic(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestRoutePolicy_IsAdmin(t *testing.T) {
	rp := DefaultRoutePolicy()

	tests := map[string]bool{
		"/admin":                     true,
		"/admin/dashboard":           true,
		"/api/admin/members/pending": true,
		"/administrator":             false,
		"/api/administer":            false,
		"/dashboard":                 false,
		"/api/auth/me":               false,
	}
	for path, want := range tests {
		if got := rp.IsAdmin(path); got != want {
			t.Errorf("IsAdmin(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIsAPI(t *testing.T) {
	tests := map[string]bool{
		"/api":         true,
		"/api/":        true,
		"/api/auth/me": true,
		"/apis":        false,
		"/":            false,
		"/admin/api":   false,
	}
	for path, want := range tests {
		if got := IsAPI(path); got != want {
			t.Errorf("IsAPI(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":                            "/",
		"/":                           "/",
		"/api/auth/login/../../admin": "/api/admin",
		"//api//auth/me":              "/api/auth/me",
		"api/auth/me":                 "/api/auth/me",
		"/news/./42":                  "/news/42",
		"/../../etc":                  "/etc",
	}
	for in, want := range tests {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
