package perms_test

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagfs/tagfs/internal/perms"
)

func TestMyUserAndGroupMatchesOSUser(t *testing.T) {
	u, err := user.Current()
	require.NoError(t, err)
	wantUID, err := strconv.ParseUint(u.Uid, 10, 32)
	require.NoError(t, err)
	wantGID, err := strconv.ParseUint(u.Gid, 10, 32)
	require.NoError(t, err)

	gotUID, gotGID, err := perms.MyUserAndGroup()
	require.NoError(t, err)

	assert.Equal(t, uint32(wantUID), gotUID)
	assert.Equal(t, uint32(wantGID), gotGID)
}
