package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"canteen/internal/domain"
	"canteen/internal/mocks"
)

func TestSignUp_CreatesProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthenticator(ctrl)
	profiles := mocks.NewMockProfileRepository(ctrl)

	auth.EXPECT().SignUp(gomock.Any(), "ada@campus.test", "secret").
		Return(&domain.Registration{UserID: "u1"}, nil)
	profiles.EXPECT().UpsertProfile(gomock.Any(), domain.Profile{ID: "u1", FullName: "Ada L", Role: domain.RoleStaff}).
		Return(nil)

	uc := NewSignUp(auth, profiles, testLogger())
	p, err := uc.Execute(context.Background(), SignUpInput{
		Credentials: Credentials{Email: "ada@campus.test", Password: "secret"},
		FullName:    "  Ada L ",
	}, domain.RoleStaff)

	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, p.Role)
}

func TestSignUp_RevokesRegistrationSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthenticator(ctrl)
	profiles := mocks.NewMockProfileRepository(ctrl)

	auth.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Registration{
		UserID:  "u1",
		Session: &domain.Session{AccessToken: "reg", UserID: "u1"},
	}, nil)
	profiles.EXPECT().UpsertProfile(gomock.Any(), gomock.Any()).Return(nil)
	auth.EXPECT().SignOut(gomock.Any(), "reg").Return(nil)

	uc := NewSignUp(auth, profiles, testLogger())
	_, err := uc.Execute(context.Background(), SignUpInput{FullName: "Ada"}, domain.RoleStudent)
	require.NoError(t, err)
}

func TestSignUp_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthenticator(ctrl)
	profiles := mocks.NewMockProfileRepository(ctrl)

	auth.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrDuplicateAccount)

	uc := NewSignUp(auth, profiles, testLogger())
	_, err := uc.Execute(context.Background(), SignUpInput{}, domain.RoleStudent)
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
}

func TestSignUp_IncompleteRegistration(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthenticator(ctrl)
	profiles := mocks.NewMockProfileRepository(ctrl)

	auth.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Registration{}, nil)

	uc := NewSignUp(auth, profiles, testLogger())
	_, err := uc.Execute(context.Background(), SignUpInput{}, domain.RoleStudent)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSignUp_UnknownRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := NewSignUp(mocks.NewMockAuthenticator(ctrl), mocks.NewMockProfileRepository(ctrl), testLogger())

	_, err := uc.Execute(context.Background(), SignUpInput{}, domain.Role("admin"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
