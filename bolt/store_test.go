package bolt

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/graphs"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/users"
)

func createDriver(t *testing.T) (*Driver, func()) {
	tmpFile, err := os.CreateTemp("", "")
	if err != nil {
		t.Fatal("could not create tmp file:", err)
	}

	filename := tmpFile.Name()
	driver := Driver{}
	if err := driver.Open(filename); err != nil {
		os.Remove(filename)
		t.Fatal("could not open driver:", err)
	}

	return &driver, func() {
		driver.Close()
		os.Remove(filename)
	}
}

func TestUserStore(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := UserStore{Driver: driver}

	user, err := store.Get("alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, users.User{}, user, "missing user is the zero value")

	user = users.User{ID: "alice@example.org", Name: "Alice"}
	require.NoError(t, store.Upsert(&user))
	assert.False(t, user.CreatedAt.IsZero(), "inserting sets the created at")
	assert.False(t, user.UpdatedAt.IsZero(), "inserting sets the updated at")

	created := user.CreatedAt
	user.Name = "Alice Smith"
	require.NoError(t, store.Upsert(&user))
	assert.Equal(t, created, user.CreatedAt, "updating keeps the created at")

	retrieved, err := store.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", retrieved.Name)

	other := users.User{ID: "bob@example.org", Name: "Bob"}
	require.NoError(t, store.Upsert(&other))

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.Delete(user.ID))
	retrieved, err = store.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, users.User{}, retrieved)
}

func TestResetStore(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := ResetStore{Driver: driver}

	reset := users.Reset{Email: "alice@example.org", Code: "secret-code"}
	require.NoError(t, store.Put(reset))

	byEmail, err := store.GetByEmail("alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, "secret-code", byEmail.Code)

	byCode, err := store.GetByCode("secret-code")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", byCode.Email)

	missing, err := store.GetByCode("other")
	require.NoError(t, err)
	assert.Equal(t, users.Reset{}, missing)

	require.NoError(t, store.Delete("alice@example.org"))
	byEmail, err = store.GetByEmail("alice@example.org")
	require.NoError(t, err)
	assert.Equal(t, users.Reset{}, byEmail)
}

func TestGroupStore(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := GroupStore{Driver: driver}

	group := groups.Group{
		Key:     groups.Key{Owner: "alice", Name: "team"},
		Members: []string{"bob"},
	}
	require.NoError(t, store.Upsert(&group))
	assert.NotEqual(t, 0, group.ID, "inserting allocates the id")

	other := groups.Group{Key: groups.Key{Owner: "alice", Name: "club"}}
	require.NoError(t, store.Upsert(&other))
	assert.NotEqual(t, group.ID, other.ID, "ids are unique")

	retrieved, err := store.Get(group.Key)
	require.NoError(t, err)
	assert.Equal(t, group.ID, retrieved.ID)
	assert.Equal(t, []string{"bob"}, retrieved.Members)

	owned, err := store.ListOwnedBy("alice")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	member, err := store.ListWithMember("bob")
	require.NoError(t, err)
	require.Len(t, member, 1)
	assert.Equal(t, group.Key, member[0].Key)

	member, err = store.ListWithMember("alice")
	require.NoError(t, err)
	assert.Empty(t, member, "owned groups are not memberships")

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGroupStoreDeleteCascades(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := GroupStore{Driver: driver}
	grants := GrantStore{Driver: driver}
	layoutGrants := LayoutGrantStore{Driver: driver}

	team := groups.Group{Key: groups.Key{Owner: "alice", Name: "team"}}
	club := groups.Group{Key: groups.Key{Owner: "alice", Name: "club"}}
	require.NoError(t, store.Upsert(&team))
	require.NoError(t, store.Upsert(&club))

	graph := graphs.Key{Owner: "alice", Name: "doc"}
	layout := graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "mine"}
	require.NoError(t, grants.Put(graphs.Grant{Graph: graph, Group: team.Key}))
	require.NoError(t, grants.Put(graphs.Grant{Graph: graph, Group: club.Key}))
	require.NoError(t, layoutGrants.Put(graphs.LayoutGrant{Layout: layout, Group: team.Key}))

	require.NoError(t, store.Delete(team.Key))

	retrieved, err := store.Get(team.Key)
	require.NoError(t, err)
	assert.Equal(t, 0, retrieved.ID, "group is gone")

	remaining, err := grants.ListForGraph(graph)
	require.NoError(t, err)
	require.Len(t, remaining, 1, "only the deleted group's grant is swept")
	assert.Equal(t, club.Key, remaining[0].Group)

	layoutRemaining, err := layoutGrants.ListForLayout(layout)
	require.NoError(t, err)
	assert.Empty(t, layoutRemaining)
}

func TestGraphStore(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := GraphStore{Driver: driver}

	graph := graphs.Graph{
		Key:  graphs.Key{Owner: "alice", Name: "doc"},
		Tags: []string{"bio"},
	}
	require.NoError(t, store.Upsert(&graph))
	assert.False(t, graph.CreatedAt.IsZero())

	created := graph.CreatedAt
	graph.IsPublic = true
	require.NoError(t, store.Upsert(&graph))
	assert.Equal(t, created, graph.CreatedAt)

	retrieved, err := store.Get(graph.Key)
	require.NoError(t, err)
	assert.True(t, retrieved.IsPublic)
	assert.Equal(t, []string{"bio"}, retrieved.Tags)

	private := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "draft"}}
	other := graphs.Graph{Key: graphs.Key{Owner: "bob", Name: "doc"}}
	require.NoError(t, store.Upsert(&private))
	require.NoError(t, store.Upsert(&other))

	owned, err := store.ListOwnedBy("alice")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	public, err := store.ListPublic()
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, graph.Key, public[0].Key)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGraphStoreListSharedWith(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := GraphStore{Driver: driver}
	groupStore := GroupStore{Driver: driver}
	grants := GrantStore{Driver: driver}

	team := groups.Group{Key: groups.Key{Owner: "alice", Name: "team"}, Members: []string{"bob"}}
	require.NoError(t, groupStore.Upsert(&team))
	club := groups.Group{Key: groups.Key{Owner: "carol", Name: "club"}, Members: []string{"bob"}}
	require.NoError(t, groupStore.Upsert(&club))

	shared := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "shared"}}
	twice := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "twice"}}
	hidden := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "hidden"}}
	require.NoError(t, store.Upsert(&shared))
	require.NoError(t, store.Upsert(&twice))
	require.NoError(t, store.Upsert(&hidden))

	require.NoError(t, grants.Put(graphs.Grant{Graph: shared.Key, Group: team.Key}))
	// Granted into both of bob's groups: listed once.
	require.NoError(t, grants.Put(graphs.Grant{Graph: twice.Key, Group: team.Key}))
	require.NoError(t, grants.Put(graphs.Grant{Graph: twice.Key, Group: club.Key}))

	list, err := store.ListSharedWith("bob")
	require.NoError(t, err)

	keys := make(map[graphs.Key]bool)
	for _, g := range list {
		keys[g.Key] = true
	}
	assert.Len(t, list, 2, "deduplicated across groups")
	assert.True(t, keys[shared.Key])
	assert.True(t, keys[twice.Key])

	list, err = store.ListSharedWith("dave")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGraphStoreDeleteCascades(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := GraphStore{Driver: driver}
	layouts := LayoutStore{Driver: driver}
	grants := GrantStore{Driver: driver}
	layoutGrants := LayoutGrantStore{Driver: driver}

	graph := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "doc"}}
	require.NoError(t, store.Upsert(&graph))
	survivor := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "docs"}}
	require.NoError(t, store.Upsert(&survivor))

	team := groups.Key{Owner: "alice", Name: "team"}
	layout := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph.Key, Name: "mine"}}
	require.NoError(t, layouts.Upsert(&layout))
	require.NoError(t, grants.Put(graphs.Grant{Graph: graph.Key, Group: team}))
	require.NoError(t, layoutGrants.Put(graphs.LayoutGrant{Layout: layout.LayoutKey, Group: team}))
	require.NoError(t, layouts.SetDefault("bob", graph.Key, layout.LayoutKey))

	otherLayout := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: survivor.Key, Name: "mine"}}
	require.NoError(t, layouts.Upsert(&otherLayout))

	require.NoError(t, store.Delete(graph.Key))

	retrieved, err := store.Get(graph.Key)
	require.NoError(t, err)
	assert.False(t, retrieved.Exists())

	l, err := layouts.Get(layout.LayoutKey)
	require.NoError(t, err)
	assert.False(t, l.Exists(), "layouts are swept")

	// The name-prefixed sibling graph is untouched.
	l, err = layouts.Get(otherLayout.LayoutKey)
	require.NoError(t, err)
	assert.True(t, l.Exists())

	remaining, err := grants.ListForGraph(graph.Key)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	layoutRemaining, err := layoutGrants.ListForLayout(layout.LayoutKey)
	require.NoError(t, err)
	assert.Empty(t, layoutRemaining)

	def, err := layouts.Default("bob", graph.Key)
	require.NoError(t, err)
	assert.Equal(t, graphs.LayoutKey{}, def, "defaults are swept")
}

func TestLayoutStore(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := LayoutStore{Driver: driver}

	graph := graphs.Key{Owner: "alice", Name: "doc"}
	layout := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "mine"}}
	require.NoError(t, store.Upsert(&layout))
	assert.False(t, layout.CreatedAt.IsZero())

	second := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "alt"}}
	require.NoError(t, store.Upsert(&second))

	list, err := store.ListForGraph(graph)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// The default entry is a single key per (viewer, graph): setting a new
	// one is one atomic replacement.
	require.NoError(t, store.SetDefault("bob", graph, layout.LayoutKey))
	def, err := store.Default("bob", graph)
	require.NoError(t, err)
	assert.Equal(t, layout.LayoutKey, def)

	require.NoError(t, store.SetDefault("bob", graph, second.LayoutKey))
	def, err = store.Default("bob", graph)
	require.NoError(t, err)
	assert.Equal(t, second.LayoutKey, def)

	def, err = store.Default("carol", graph)
	require.NoError(t, err)
	assert.Equal(t, graphs.LayoutKey{}, def, "defaults are per viewer")

	require.NoError(t, store.ClearDefault("bob", graph))
	def, err = store.Default("bob", graph)
	require.NoError(t, err)
	assert.Equal(t, graphs.LayoutKey{}, def)
}

func TestLayoutStoreDeleteCascades(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := LayoutStore{Driver: driver}
	layoutGrants := LayoutGrantStore{Driver: driver}

	graph := graphs.Key{Owner: "alice", Name: "doc"}
	layout := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "mine"}}
	require.NoError(t, store.Upsert(&layout))

	team := groups.Key{Owner: "alice", Name: "team"}
	require.NoError(t, layoutGrants.Put(graphs.LayoutGrant{Layout: layout.LayoutKey, Group: team}))
	require.NoError(t, store.SetDefault("carol", graph, layout.LayoutKey))

	require.NoError(t, store.Delete(layout.LayoutKey))

	remaining, err := layoutGrants.ListForLayout(layout.LayoutKey)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	def, err := store.Default("carol", graph)
	require.NoError(t, err)
	assert.Equal(t, graphs.LayoutKey{}, def)
}

func TestLayoutStoreRename(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	store := LayoutStore{Driver: driver}
	layoutGrants := LayoutGrantStore{Driver: driver}

	graph := graphs.Key{Owner: "alice", Name: "doc"}
	layout := graphs.Layout{
		LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "v1"},
		Points:    []byte(`{"a":[1]}`),
	}
	require.NoError(t, store.Upsert(&layout))
	taken := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "final"}}
	require.NoError(t, store.Upsert(&taken))

	team := groups.Key{Owner: "alice", Name: "team"}
	require.NoError(t, layoutGrants.Put(graphs.LayoutGrant{Layout: layout.LayoutKey, Group: team}))
	require.NoError(t, store.SetDefault("carol", graph, layout.LayoutKey))

	_, err := store.Rename(layout.LayoutKey, "final")
	if assert.Error(t, err, "the target name is taken") {
		errors.AssertCode(t, err, 409)
	}

	renamed, err := store.Rename(layout.LayoutKey, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", renamed.Name)
	assert.Equal(t, json.RawMessage(`{"a":[1]}`), renamed.Points)

	old, err := store.Get(layout.LayoutKey)
	require.NoError(t, err)
	assert.False(t, old.Exists(), "the old key is gone")

	moved, err := layoutGrants.ListForLayout(renamed.LayoutKey)
	require.NoError(t, err)
	if assert.Len(t, moved, 1, "the grant follows the rename") {
		assert.Equal(t, team, moved[0].Group)
	}
	stale, err := layoutGrants.ListForLayout(layout.LayoutKey)
	require.NoError(t, err)
	assert.Empty(t, stale)

	def, err := store.Default("carol", graph)
	require.NoError(t, err)
	assert.Equal(t, renamed.LayoutKey, def, "the default follows the rename")

	missing, err := store.Rename(graphs.LayoutKey{Owner: "bob", Graph: graph, Name: "ghost"}, "v3")
	require.NoError(t, err)
	assert.False(t, missing.Exists(), "renaming a missing layout returns the zero layout")
}

func TestSource(t *testing.T) {
	driver, f := createDriver(t)
	defer f()

	graphStore := GraphStore{Driver: driver}
	groupStore := GroupStore{Driver: driver}
	grants := GrantStore{Driver: driver}
	layouts := LayoutStore{Driver: driver}
	layoutGrants := LayoutGrantStore{Driver: driver}
	source := Source{Driver: driver}

	team := groups.Group{Key: groups.Key{Owner: "alice", Name: "team"}, Members: []string{"bob"}}
	require.NoError(t, groupStore.Upsert(&team))

	graph := graphs.Graph{Key: graphs.Key{Owner: "alice", Name: "doc"}}
	require.NoError(t, graphStore.Upsert(&graph))
	require.NoError(t, grants.Put(graphs.Grant{Graph: graph.Key, Group: team.Key}))

	snapshot, err := source.GraphVisibility("bob", graph.Key)
	require.NoError(t, err)
	assert.True(t, snapshot.Exists)
	assert.False(t, snapshot.IsPublic)
	assert.Equal(t, []groups.Key{team.Key}, snapshot.Granted)
	assert.Equal(t, []groups.Key{team.Key}, snapshot.ViewerGroups)

	snapshot, err = source.GraphVisibility("dave", graph.Key)
	require.NoError(t, err)
	assert.Empty(t, snapshot.ViewerGroups)

	snapshot, err = source.GraphVisibility("bob", graphs.Key{Owner: "alice", Name: "ghost"})
	require.NoError(t, err)
	assert.False(t, snapshot.Exists)

	layout := graphs.Layout{LayoutKey: graphs.LayoutKey{Owner: "bob", Graph: graph.Key, Name: "mine"}}
	require.NoError(t, layouts.Upsert(&layout))
	require.NoError(t, layoutGrants.Put(graphs.LayoutGrant{Layout: layout.LayoutKey, Group: team.Key}))

	layoutSnapshot, err := source.LayoutVisibility("bob", layout.LayoutKey)
	require.NoError(t, err)
	assert.True(t, layoutSnapshot.Exists)
	assert.True(t, layoutSnapshot.Graph.Exists)
	assert.Equal(t, []groups.Key{team.Key}, layoutSnapshot.Granted)
}
