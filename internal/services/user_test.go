package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusattend/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestUserService_GetByID(t *testing.T) {
	userRepo := &mockUserRepository{
		users: map[string]*domain.User{
			"u1": {ID: "u1", Email: "asha@example.edu", Name: "Asha", Role: domain.RoleStudent},
		},
	}
	svc := NewUserService(userRepo, 2*time.Second)

	user, err := svc.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "asha@example.edu" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	tests := []struct {
		name    string
		upd     domain.UserUpdate
		check   func(t *testing.T, u *domain.User)
		wantErr error
	}{
		{
			name: "update all fields",
			upd: domain.UserUpdate{
				Name:       strPtr("Asha K"),
				Department: strPtr("CSE"),
				RollNo:     strPtr("21CS042"),
				Phone:      strPtr("9876543210"),
			},
			check: func(t *testing.T, u *domain.User) {
				if u.Name != "Asha K" || u.Department != "CSE" || u.RollNo != "21CS042" || u.Phone != "9876543210" {
					t.Fatalf("unexpected user after update: %+v", u)
				}
			},
		},
		{
			name: "partial update keeps other fields",
			upd:  domain.UserUpdate{Department: strPtr("ECE")},
			check: func(t *testing.T, u *domain.User) {
				if u.Name != "Asha" {
					t.Fatalf("name should be unchanged, got %q", u.Name)
				}
				if u.Department != "ECE" {
					t.Fatalf("expected ECE, got %q", u.Department)
				}
			},
		},
		{
			name:    "blank name rejected",
			upd:     domain.UserUpdate{Name: strPtr("   ")},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepository{
				users: map[string]*domain.User{
					"u1": {ID: "u1", Email: "asha@example.edu", Name: "Asha", Role: domain.RoleStudent},
				},
			}
			svc := NewUserService(userRepo, 2*time.Second)

			user, err := svc.UpdateProfile(context.Background(), "u1", tt.upd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, user)
		})
	}

	svc := NewUserService(&mockUserRepository{users: map[string]*domain.User{}}, 2*time.Second)
	if _, err := svc.UpdateProfile(context.Background(), "missing", domain.UserUpdate{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
