package blast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shihwesley/chronicler/digest"
	"github.com/shihwesley/chronicler/merkle"
)

type staticResolver map[string]string

func (r staticResolver) ComponentFor(_ string, node *merkle.Node) string {
	return r[node.Path]
}

func testTree(t *testing.T, files ...string) *merkle.Tree {
	t.Helper()
	tree := &merkle.Tree{Nodes: map[string]*merkle.Node{}, RootPath: "/project"}
	var children []string
	for _, f := range files {
		node, err := merkle.NewFileNode(f, digest.Bytes([]byte(f)), "", "")
		require.NoError(t, err)
		tree.Nodes[f] = node
		children = append(children, f)
	}
	root, err := merkle.NewDirNode("", digest.Empty, children)
	require.NoError(t, err)
	tree.Nodes[""] = root
	tree.RootHash = root.Hash
	return tree
}

func scenarioGraph() EdgeGraph {
	return EdgeGraph{
		"my-app":       {{Target: "auth-service", Type: "calls"}},
		"auth-service": {{Target: "db-layer", Type: "depends_on"}},
	}
}

func Test_Walk_TwoHopScenario(t *testing.T) {
	tree := testTree(t, "app.py")
	w := Walker{Resolver: staticResolver{"app.py": "my-app"}}

	result, err := w.Walk(tree, "app.py", scenarioGraph(), 2)
	require.NoError(t, err)

	assert.Equal(t, "my-app", result.Start)
	assert.Equal(t, []Impact{
		{Component: "auth-service", Hops: 1, Via: "calls"},
		{Component: "db-layer", Hops: 2, Via: "depends_on"},
	}, result.Impacts)
}

func Test_Walk_DepthLimitsReach(t *testing.T) {
	tree := testTree(t, "app.py")
	w := Walker{Resolver: staticResolver{"app.py": "my-app"}}

	result, err := w.Walk(tree, "app.py", scenarioGraph(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"auth-service"}, result.Components())
	assert.NotContains(t, result.Components(), "db-layer")
}

func Test_Walk_IsBidirectional(t *testing.T) {
	tree := testTree(t, "db.py")
	w := Walker{Resolver: staticResolver{"db.py": "db-layer"}}

	result, err := w.Walk(tree, "db.py", scenarioGraph(), 2)
	require.NoError(t, err)

	assert.Equal(t, []Impact{
		{Component: "auth-service", Hops: 1, Via: "depends_on"},
		{Component: "my-app", Hops: 2, Via: "calls"},
	}, result.Impacts)
}

func Test_Walk_MinimumHopWins(t *testing.T) {
	graph := EdgeGraph{
		"a": {{Target: "b"}, {Target: "c"}},
		"b": {{Target: "c"}},
		"c": {{Target: "d"}},
	}
	tree := testTree(t, "a.go")

	result, err := Walker{Resolver: staticResolver{"a.go": "a"}}.Walk(tree, "a.go", graph, 5)
	require.NoError(t, err)

	assert.Equal(t, []Impact{
		{Component: "b", Hops: 1},
		{Component: "c", Hops: 1},
		{Component: "d", Hops: 2},
	}, result.Impacts)
}

func Test_Walk_StartComponentNeverReported(t *testing.T) {
	graph := EdgeGraph{
		"a": {{Target: "b"}},
		"b": {{Target: "a"}},
	}
	tree := testTree(t, "a.go")

	result, err := Walker{Resolver: staticResolver{"a.go": "a"}}.Walk(tree, "a.go", graph, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, result.Components())
}

func Test_Walk_FallsBackToPath(t *testing.T) {
	graph := EdgeGraph{"lib/util.py": {{Target: "core", Type: "imports"}}}
	tree := testTree(t, "lib/util.py")

	result, err := Walker{}.Walk(tree, "lib/util.py", graph, 1)
	require.NoError(t, err)

	assert.Equal(t, "lib/util.py", result.Start)
	assert.Equal(t, []string{"core"}, result.Components())

	result, err = Walker{Resolver: staticResolver{}}.Walk(tree, "lib/util.py", graph, 1)
	require.NoError(t, err)
	assert.Equal(t, "lib/util.py", result.Start)
}

func Test_Walk_IgnoresEmptyTargets(t *testing.T) {
	graph := EdgeGraph{"a": {{Target: ""}, {Target: "b", Type: "uses"}}}
	tree := testTree(t, "a.go")

	result, err := Walker{Resolver: staticResolver{"a.go": "a"}}.Walk(tree, "a.go", graph, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, result.Components())
}

func Test_Walk_ZeroDepth(t *testing.T) {
	tree := testTree(t, "app.py")

	result, err := Walker{Resolver: staticResolver{"app.py": "my-app"}}.Walk(tree, "app.py", scenarioGraph(), 0)
	require.NoError(t, err)

	assert.Empty(t, result.Impacts)
	assert.Empty(t, result.Levels())
}

func Test_Walk_Errors(t *testing.T) {
	tree := testTree(t, "app.py")

	_, err := Walker{}.Walk(tree, "missing.py", scenarioGraph(), 2)
	assert.ErrorIs(t, err, merkle.ErrNotFound)

	_, err = Walker{}.Walk(tree, "app.py", scenarioGraph(), -1)
	assert.ErrorIs(t, err, ErrInvalidDepth)
}

func Test_Walk_DeterministicVia(t *testing.T) {
	graph := EdgeGraph{
		"z":   {{Target: "hub", Type: "z-edge"}},
		"a":   {{Target: "hub", Type: "a-edge"}},
		"hub": {{Target: "x", Type: "hub-edge"}},
	}
	tree := testTree(t, "x.go")

	for i := 0; i < 20; i++ {
		result, err := Walker{Resolver: staticResolver{"x.go": "x"}}.Walk(tree, "x.go", graph, 2)
		require.NoError(t, err)
		assert.Equal(t, []Impact{
			{Component: "hub", Hops: 1, Via: "hub-edge"},
			{Component: "a", Hops: 2, Via: "a-edge"},
			{Component: "z", Hops: 2, Via: "z-edge"},
		}, result.Impacts)
	}
}

func Test_Result_Levels(t *testing.T) {
	result := &Result{Depth: 3, Impacts: []Impact{
		{Component: "a", Hops: 1},
		{Component: "b", Hops: 1},
		{Component: "c", Hops: 3},
	}}

	levels := result.Levels()

	require.Len(t, levels, 3)
	assert.Len(t, levels[0], 2)
	assert.Empty(t, levels[1])
	assert.Equal(t, "c", levels[2][0].Component)
}

func Test_Result_LevelsIgnoresRequestedDepth(t *testing.T) {
	result := &Result{Depth: math.MaxInt, Impacts: []Impact{{Component: "a", Hops: 2}}}

	require.NotPanics(t, func() {
		levels := result.Levels()
		require.Len(t, levels, 2)
		assert.Empty(t, levels[0])
		assert.Equal(t, "a", levels[1][0].Component)
	})
}

func Test_Walk_HugeDepthStopsAtFrontier(t *testing.T) {
	tree := testTree(t, "app.py")
	w := Walker{Resolver: staticResolver{"app.py": "my-app"}}

	result, err := w.Walk(tree, "app.py", scenarioGraph(), math.MaxInt)
	require.NoError(t, err)

	assert.Equal(t, []string{"auth-service", "db-layer"}, result.Components())
	assert.Len(t, result.Levels(), 2)
}
