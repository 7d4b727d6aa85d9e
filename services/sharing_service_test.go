package services

import (
	"testing"

	"leguardian-http-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestSharingService(t *testing.T) (*SharingService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewSharingService(db, testConfig(), nil).(*SharingService)
	return svc, db
}

func TestShareBraceletFlow(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-01")
	owner := createGuardian(t, db, "parent@example.com")
	other := createGuardian(t, db, "grandma@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	invitation, err := svc.ShareBracelet(owner.ID, bracelet.ID, other.Email, CapabilityFlags{
		CanViewLocation: true,
		CanViewEvents:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleShared, invitation.Role)
	assert.Nil(t, invitation.AcceptedAt, "invitation starts pending")
	assert.False(t, invitation.SharedAt.IsZero())

	// While pending, the recipient holds no capabilities
	ok, err := svc.HasCapability(other.ID, bracelet.ID, models.CapViewLocation)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := svc.GetPendingInvitations(other.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, bracelet.ID, pending[0].Bracelet.ID)

	accepted, err := svc.AcceptInvitation(other.ID, invitation.ID)
	require.NoError(t, err)
	assert.NotNil(t, accepted.AcceptedAt)

	ok, err = svc.HasCapability(other.ID, bracelet.ID, models.CapViewLocation)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasCapability(other.ID, bracelet.ID, models.CapSendCommands)
	require.NoError(t, err)
	assert.False(t, ok, "only the granted capabilities apply")

	pending, err = svc.GetPendingInvitations(other.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestShareBraceletRequiresEditCapability(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-02")
	owner := createGuardian(t, db, "owner@example.com")
	editor := createGuardian(t, db, "editor@example.com")
	viewer := createGuardian(t, db, "viewer@example.com")
	target := createGuardian(t, db, "target@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, editor.ID, models.RoleShared, CapabilityFlags{CanEdit: true})
	linkGuardian(t, db, bracelet.ID, viewer.ID, models.RoleShared, CapabilityFlags{CanViewLocation: true})

	_, err := svc.ShareBracelet(viewer.ID, bracelet.ID, target.Email, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrShareUnauthorized, "sharing is gated on can_edit, not on a role")

	_, err = svc.ShareBracelet(target.ID, bracelet.ID, viewer.Email, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrShareUnauthorized, "outsiders cannot share")

	// A shared guardian holding can_edit manages sharing like the owner
	invitation, err := svc.ShareBracelet(editor.ID, bracelet.ID, target.Email, CapabilityFlags{CanViewEvents: true})
	require.NoError(t, err)
	assert.Equal(t, models.RoleShared, invitation.Role)

	_, err = svc.AcceptInvitation(target.ID, invitation.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateCapabilities(editor.ID, bracelet.ID, target.ID, CapabilityFlags{CanViewLocation: true})
	require.NoError(t, err)
	assert.True(t, updated.CanViewLocation)

	_, err = svc.UpdateCapabilities(viewer.ID, bracelet.ID, target.ID, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrShareUnauthorized)

	assert.ErrorIs(t, svc.RevokeShare(viewer.ID, bracelet.ID, target.ID), ErrShareUnauthorized)
	require.NoError(t, svc.RevokeShare(editor.ID, bracelet.ID, target.ID))
}

func TestShareBraceletPendingEditorCannotShare(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-06")
	owner := createGuardian(t, db, "own13@example.com")
	invited := createGuardian(t, db, "pending-editor@example.com")
	target := createGuardian(t, db, "target2@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	invitation, err := svc.ShareBracelet(owner.ID, bracelet.ID, invited.Email, CapabilityFlags{CanEdit: true})
	require.NoError(t, err)
	assert.Nil(t, invitation.AcceptedAt)

	// can_edit takes effect only after the invitation is accepted
	_, err = svc.ShareBracelet(invited.ID, bracelet.ID, target.Email, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrShareUnauthorized)
}

func TestShareBraceletSelfShare(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-03")
	owner := createGuardian(t, db, "self@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	_, err := svc.ShareBracelet(owner.ID, bracelet.ID, owner.Email, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrSelfShare)
}

func TestShareBraceletAlreadyShared(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-04")
	owner := createGuardian(t, db, "own4@example.com")
	other := createGuardian(t, db, "dup@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	_, err := svc.ShareBracelet(owner.ID, bracelet.ID, other.Email, CapabilityFlags{})
	require.NoError(t, err)

	// A second invitation is rejected even while the first is pending
	_, err = svc.ShareBracelet(owner.ID, bracelet.ID, other.Email, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrAlreadyShared)
}

func TestShareBraceletUnknownEmail(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-SHARE-05")
	owner := createGuardian(t, db, "own5@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	_, err := svc.ShareBracelet(owner.ID, bracelet.ID, "nobody@example.com", CapabilityFlags{})
	assert.ErrorIs(t, err, ErrGuardianNotFound)
}

func TestDeclineInvitation(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-DECL-001")
	owner := createGuardian(t, db, "own6@example.com")
	other := createGuardian(t, db, "decliner@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	invitation, err := svc.ShareBracelet(owner.ID, bracelet.ID, other.Email, CapabilityFlags{})
	require.NoError(t, err)

	require.NoError(t, svc.DeclineInvitation(other.ID, invitation.ID))

	var count int64
	require.NoError(t, db.Model(&models.BraceletGuardian{}).
		Where("guardian_id = ?", other.ID).Count(&count).Error)
	assert.Zero(t, count)

	// Declining again, or declining someone else's invitation, fails
	assert.ErrorIs(t, svc.DeclineInvitation(other.ID, invitation.ID), ErrInvitationNotFound)
}

func TestAcceptInvitationWrongGuardian(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-ACC-0001")
	owner := createGuardian(t, db, "own7@example.com")
	other := createGuardian(t, db, "invitee@example.com")
	eavesdropper := createGuardian(t, db, "eaves@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	invitation, err := svc.ShareBracelet(owner.ID, bracelet.ID, other.Email, CapabilityFlags{})
	require.NoError(t, err)

	_, err = svc.AcceptInvitation(eavesdropper.ID, invitation.ID)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestRevokeShare(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-REV-0001")
	owner := createGuardian(t, db, "own8@example.com")
	other := createGuardian(t, db, "revoked@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, other.ID, models.RoleShared, allCaps())

	require.NoError(t, svc.RevokeShare(owner.ID, bracelet.ID, other.ID))

	ok, err := svc.HasCapability(other.ID, bracelet.ID, models.CapViewLocation)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevokeShareOwnerIsImmune(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-REV-0002")
	owner := createGuardian(t, db, "own9@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	err := svc.RevokeShare(owner.ID, bracelet.ID, owner.ID)
	assert.ErrorIs(t, err, ErrInvitationNotFound, "the owner relationship cannot be revoked")

	ok, err := svc.HasCapability(owner.ID, bracelet.ID, models.CapEdit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateCapabilities(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-UPD-0001")
	owner := createGuardian(t, db, "own10@example.com")
	other := createGuardian(t, db, "granted@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, other.ID, models.RoleShared, CapabilityFlags{CanViewLocation: true})

	updated, err := svc.UpdateCapabilities(owner.ID, bracelet.ID, other.ID, CapabilityFlags{
		CanViewLocation: true,
		CanViewEvents:   true,
		CanSendCommands: true,
	})
	require.NoError(t, err)
	assert.True(t, updated.CanSendCommands)
	assert.False(t, updated.CanEdit)

	ok, err := svc.HasCapability(other.ID, bracelet.ID, models.CapSendCommands)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateCapabilitiesOwnerFixed(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-UPD-0002")
	owner := createGuardian(t, db, "own11@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())

	_, err := svc.UpdateCapabilities(owner.ID, bracelet.ID, owner.ID, CapabilityFlags{})
	assert.ErrorIs(t, err, ErrInvitationNotFound, "owner capabilities are not adjustable")
}

func TestGetBraceletGuardians(t *testing.T) {
	svc, db := newTestSharingService(t)
	bracelet := createBracelet(t, db, "LG-LIST-001")
	owner := createGuardian(t, db, "own12@example.com")
	other := createGuardian(t, db, "member@example.com")
	outsider := createGuardian(t, db, "nosy@example.com")
	linkGuardian(t, db, bracelet.ID, owner.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, other.ID, models.RoleShared, allCaps())

	links, err := svc.GetBraceletGuardians(other.ID, bracelet.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.NotEmpty(t, links[0].Guardian.Email)

	_, err = svc.GetBraceletGuardians(outsider.ID, bracelet.ID)
	assert.ErrorIs(t, err, ErrShareUnauthorized)
}
