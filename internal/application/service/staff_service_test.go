package service

import (
	"context"
	"testing"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staffFixture struct {
	svc     *StaffService
	doctors *MockDoctorRepository
	techs   *MockTechnicianRepository
	users   *MockUserRepository
	roles   *MockRoleRepository
}

func newStaffFixture() *staffFixture {
	f := &staffFixture{
		doctors: new(MockDoctorRepository),
		techs:   new(MockTechnicianRepository),
		users:   new(MockUserRepository),
		roles:   new(MockRoleRepository),
	}
	tx := &fakeTx{}
	f.svc = NewStaffService(f.doctors, f.techs, f.users, f.roles, tx, newTestIdentifiers(newFakeSequences(), tx), logger.Discard())
	return f
}

// expectNewAccount stubs a fresh account with the given role
func (f *staffFixture) expectNewAccount(email, role string) {
	f.users.On("GetByEmail", mock.Anything, email).Return(nil, nil)
	f.roles.On("GetByName", mock.Anything, role).Return(&entity.Role{ID: 4, Name: role}, nil)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*entity.User).ID = uuid.New() }).
		Return(nil)
	f.users.On("AssignRole", mock.Anything, mock.Anything, uint(4)).Return(nil)
}

func doctorAccount(email string) AccountInput {
	return AccountInput{FirstName: "Grace", LastName: "Wanjiku", Email: email, Password: "s3cure-pass"}
}

func TestStaffService_CreateDoctor_CodeWidths(t *testing.T) {
	tests := []struct {
		name           string
		selfRegistered bool
		wantCode       string
		wantApproved   bool
	}{
		{"added by an admin", false, "DOC0001", true},
		{"self-registered", true, "DOC000001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStaffFixture()
			f.expectNewAccount("grace@example.com", entity.RoleDoctor)
			f.doctors.On("GetByLicense", mock.Anything, "KMPDC-1234").Return(nil, nil)
			f.doctors.On("Create", mock.Anything, mock.AnythingOfType("*entity.Doctor")).Return(nil)

			doctor, err := f.svc.CreateDoctor(context.Background(), doctorAccount(" Grace@Example.com "),
				&DoctorInput{LicenseNumber: " KMPDC-1234 ", Specialization: "Pathology"}, tt.selfRegistered)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, doctor.DoctorCode)
			assert.Equal(t, tt.wantApproved, doctor.IsApproved)
			assert.Equal(t, tt.selfRegistered, doctor.SelfRegistered)
			assert.Equal(t, tt.wantApproved, doctor.ApprovedAt != nil)
			assert.NotEqual(t, uuid.Nil, doctor.UserID)
			assert.Equal(t, "grace@example.com", doctor.User.Email)
		})
	}
}

func TestStaffService_CreateDoctor_DuplicateLicense(t *testing.T) {
	f := newStaffFixture()
	f.doctors.On("GetByLicense", mock.Anything, "KMPDC-1234").Return(&entity.Doctor{ID: uuid.New()}, nil)

	_, err := f.svc.CreateDoctor(context.Background(), doctorAccount("grace@example.com"),
		&DoctorInput{LicenseNumber: "KMPDC-1234"}, true)

	require.Error(t, err)
	assert.Equal(t, 409, apperror.GetAppError(err).Code)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStaffService_CreateDoctor_EmailTaken(t *testing.T) {
	f := newStaffFixture()
	f.doctors.On("GetByLicense", mock.Anything, "KMPDC-1234").Return(nil, nil)
	f.users.On("GetByEmail", mock.Anything, "grace@example.com").Return(&entity.User{ID: uuid.New()}, nil)

	_, err := f.svc.CreateDoctor(context.Background(), doctorAccount("grace@example.com"),
		&DoctorInput{LicenseNumber: "KMPDC-1234"}, false)

	assert.Equal(t, 409, apperror.GetAppError(err).Code)
	f.doctors.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStaffService_CreateDoctor_Validation(t *testing.T) {
	f := newStaffFixture()

	_, err := f.svc.CreateDoctor(context.Background(), doctorAccount("grace@example.com"), &DoctorInput{}, false)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.CreateDoctor(context.Background(), AccountInput{Email: "grace@example.com"},
		&DoctorInput{LicenseNumber: "KMPDC-1234"}, false)
	assert.True(t, apperror.IsValidation(err))
}

func TestStaffService_ApproveDoctor(t *testing.T) {
	f := newStaffFixture()
	ctx := context.Background()
	doctor := &entity.Doctor{ID: uuid.New(), DoctorCode: "DOC000001", SelfRegistered: true}

	f.doctors.On("GetByID", ctx, doctor.ID).Return(doctor, nil)
	f.doctors.On("Update", ctx, doctor).Return(nil)

	got, err := f.svc.ApproveDoctor(ctx, doctor.ID, uuid.New())

	require.NoError(t, err)
	assert.True(t, got.IsApproved)
	assert.NotNil(t, got.ApprovedAt)
}

func TestStaffService_CreateTechnician(t *testing.T) {
	f := newStaffFixture()
	f.expectNewAccount("otieno@example.com", entity.RoleLabTechnician)
	f.techs.On("Create", mock.Anything, mock.AnythingOfType("*entity.LabTechnician")).Return(nil)

	tech, err := f.svc.CreateTechnician(context.Background(),
		AccountInput{FirstName: "Otieno", Email: "otieno@example.com", Password: "s3cure-pass"},
		&TechnicianInput{Department: "Haematology"})

	require.NoError(t, err)
	assert.Equal(t, "TECH000001", tech.TechnicianCode)
	assert.Equal(t, "Haematology", tech.Department)
}
