package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyBindsParameters(t *testing.T) {
	k := TParam{Name: "K", Key: "demo/f#K"}
	v := TParam{Name: "V", Key: "demo/f#V"}
	vars := map[string]bool{k.Key: true, v.Key: true}
	intT, strT := Simple(IntID), Simple(StringID)

	s := Subst{}
	require.NoError(t, Unify(Simple(listID, k), Simple(listID, intT), vars, s))
	require.NoError(t, Unify(v, strT, vars, s))
	require.NoError(t, Unify(v, intT, vars, s))
	assert.Equal(t, Subst{k.Key: intT, v.Key: strT}, s)

	s = Subst{}
	require.NoError(t, Unify(TParam{Name: "K", Key: k.Key, Nullable: true}, WithNullability(intT, true), vars, s))
	assert.Equal(t, intT, s[k.Key])

	s = Subst{}
	require.NoError(t, Unify(k, WithNullability(intT, true), vars, s))
	assert.Equal(t, WithNullability(intT, true), s[k.Key])
}

func TestUnifyIgnoresErrorsAndStars(t *testing.T) {
	k := TParam{Name: "K", Key: "demo/f#K"}
	vars := map[string]bool{k.Key: true}

	s := Subst{}
	require.NoError(t, Unify(k, TError{Reason: "unresolved"}, vars, s))
	require.NoError(t, Unify(Simple(listID, k), TClass{ID: listID, Args: []Projection{StarProjection}}, vars, s))
	assert.Empty(t, s)
}

func TestUnifyMismatch(t *testing.T) {
	k := TParam{Name: "K", Key: "demo/f#K"}
	other := TParam{Name: "T", Key: "demo/g#T"}
	vars := map[string]bool{k.Key: true}

	s := Subst{}
	err := Unify(TClass{ID: collID, Args: []Projection{Invariantly(k), Invariantly(Simple(IntID))}},
		TClass{ID: collID, Args: []Projection{Invariantly(Simple(StringID)), Invariantly(Simple(StringID))}}, vars, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1 of demo/Collection")
	assert.Equal(t, Simple(StringID), s[k.Key])

	assert.Error(t, Unify(Simple(listID), Simple(collID), vars, Subst{}))
	assert.Error(t, Unify(other, Simple(IntID), vars, Subst{}))
	assert.NoError(t, Unify(other, other, vars, Subst{}))
}

func TestBindOccursCheck(t *testing.T) {
	k := TParam{Name: "K", Key: "demo/f#K"}
	s := Subst{}
	err := Bind(k, Simple(listID, k), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infinite type")
	assert.Empty(t, s)

	require.NoError(t, Bind(k, k, s))
	assert.Empty(t, s)
}
