package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskstore/internal/ir"
)

func TestDeriveDeterminism(t *testing.T) {
	d := New(ir.DefaultProgramID)
	owner := ir.Identity{1, 2, 3}

	addr1, bump1 := d.Derive(owner, "buy milk")
	addr2, bump2 := d.Derive(owner, "buy milk")

	assert.Equal(t, addr1, addr2, "Derive must be deterministic")
	assert.Equal(t, bump1, bump2, "bump must be deterministic")
	assert.False(t, addr1.IsZero())
}

func TestDeriveChangesWithInput(t *testing.T) {
	d := New(ir.DefaultProgramID)
	alice := ir.Identity{1}
	bob := ir.Identity{2}

	a1, _ := d.Derive(alice, "buy milk")
	a2, _ := d.Derive(bob, "buy milk")
	a3, _ := d.Derive(alice, "buy eggs")
	a4, _ := New(ir.ProgramIDFor("other")).Derive(alice, "buy milk")

	assert.NotEqual(t, a1, a2, "different owners should produce different addresses")
	assert.NotEqual(t, a1, a3, "different content should produce different addresses")
	assert.NotEqual(t, a1, a4, "different programs should produce different addresses")
}

func TestDerivedAddressIsOffCurve(t *testing.T) {
	d := New(ir.DefaultProgramID)

	for _, content := range []string{"", "a", "buy milk", strings.Repeat("x", 200)} {
		addr, bump := d.Derive(ir.Identity{9}, content)
		assert.False(t, onCurve(addr), "content %q", content)
		assert.True(t, d.Verify(addr, bump, ir.Identity{9}, content))
	}
}

func TestDeriveUsesHighestViableBump(t *testing.T) {
	d := New(ir.DefaultProgramID)
	owner := ir.Identity{4}
	addr, bump := d.Derive(owner, "walk dog")

	for b := 255; b > int(bump); b-- {
		_, err := CreateAddress(append(Seeds(owner, "walk dog"), []byte{byte(b)}), d.ProgramID)
		assert.ErrorIs(t, err, ErrOnCurve, "bump %d should have been on curve", b)
	}

	got, err := CreateAddress(append(Seeds(owner, "walk dog"), []byte{bump}), d.ProgramID)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestVerifyRejectsWrongInputs(t *testing.T) {
	d := New(ir.DefaultProgramID)
	owner := ir.Identity{5}
	addr, bump := d.Derive(owner, "pay rent")

	assert.False(t, d.Verify(addr, bump, ir.Identity{6}, "pay rent"))
	assert.False(t, d.Verify(addr, bump, owner, "pay bills"))
	assert.False(t, d.Verify(addr, bump-1, owner, "pay rent"))
}

func TestSeedBoundariesDoNotCollide(t *testing.T) {
	// The owner seed has fixed width, so content cannot shift bytes into it.
	d := New(ir.DefaultProgramID)
	a, _ := d.Derive(ir.Identity{1}, "ab")
	b, _ := d.Derive(ir.Identity{1}, "a")
	assert.NotEqual(t, a, b)
}

func TestKnownPointIsOnCurve(t *testing.T) {
	// The ed25519 base point encoding: y = 4/5.
	base, err := ir.ParseAddress("5866666666666666666666666666666666666666666666666666666666666666")
	require.NoError(t, err)
	assert.True(t, onCurve(base))
}
