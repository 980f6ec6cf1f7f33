package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

func contactsServer(t *testing.T, me model.User, coach *model.User, clients []model.User) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(me)
	})
	mux.HandleFunc("GET /api/v1/users/{id}/coach", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]*model.User{"coach": coach})
	})
	mux.HandleFunc("GET /api/v1/admin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.User{ID: 1, Role: model.RoleAdmin, DisplayName: "Admin"})
	})
	mux.HandleFunc("GET /api/v1/coaches/{id}/clients", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]model.User{"clients": clients})
	})
	return httptest.NewServer(mux)
}

func TestPlainUserMayReachCoachAndAdminOnly(t *testing.T) {
	coach := &model.User{ID: 5, Role: model.RoleCoach}
	srv := contactsServer(t, model.User{ID: 2, Role: model.RoleUser, CoachID: 5}, coach, nil)
	defer srv.Close()

	contacts, err := LoadContacts(context.Background(), NewAPI(srv.URL, "tok"))
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}

	if !contacts.CanMessage(5) {
		t.Error("expected assigned coach permitted")
	}
	if !contacts.CanMessage(1) {
		t.Error("expected admin permitted")
	}
	if contacts.CanMessage(7) {
		t.Error("expected stranger rejected")
	}
	if contacts.CanMessage(2) {
		t.Error("expected self rejected")
	}
}

func TestUserWithoutCoachMayStillReachAdmin(t *testing.T) {
	srv := contactsServer(t, model.User{ID: 2, Role: model.RoleUser}, nil, nil)
	defer srv.Close()

	contacts, err := LoadContacts(context.Background(), NewAPI(srv.URL, "tok"))
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}

	if !contacts.CanMessage(1) {
		t.Error("expected admin permitted")
	}
	if contacts.CanMessage(5) {
		t.Error("expected no coach resolved")
	}
}

func TestCoachMayReachClientsAndAdmin(t *testing.T) {
	clients := []model.User{{ID: 10, Role: model.RoleUser}, {ID: 11, Role: model.RoleUser}}
	srv := contactsServer(t, model.User{ID: 5, Role: model.RoleCoach}, nil, clients)
	defer srv.Close()

	contacts, err := LoadContacts(context.Background(), NewAPI(srv.URL, "tok"))
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}

	if !contacts.CanMessage(10) || !contacts.CanMessage(11) {
		t.Error("expected clients permitted")
	}
	if !contacts.CanMessage(1) {
		t.Error("expected admin permitted")
	}
	if contacts.CanMessage(12) {
		t.Error("expected non-client rejected")
	}
	if n := len(contacts.Recipients()); n != 3 {
		t.Errorf("expected 3 resolved recipients, got %d", n)
	}
}

func TestAdminMayReachEveryone(t *testing.T) {
	srv := contactsServer(t, model.User{ID: 1, Role: model.RoleAdmin}, nil, nil)
	defer srv.Close()

	contacts, err := LoadContacts(context.Background(), NewAPI(srv.URL, "tok"))
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}

	if !contacts.CanMessage(2) || !contacts.CanMessage(99) {
		t.Error("expected admin permitted to reach everyone")
	}
	if contacts.CanMessage(1) {
		t.Error("expected self rejected")
	}
}
