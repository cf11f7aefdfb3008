package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ForestConfig 랜덤 포레스트 하이퍼파라미터
type ForestConfig struct {
	Trees           int   `yaml:"trees" json:"trees" default:"200" validate:"gte=1,lte=5000"`
	MinSamplesSplit int   `yaml:"min_samples_split" json:"min_samples_split" default:"50" validate:"gte=2"`
	MaxDepth        int   `yaml:"max_depth" json:"max_depth" validate:"gte=0"`       // 0 = 무제한
	MaxFeatures     int   `yaml:"max_features" json:"max_features" validate:"gte=0"` // 0 = sqrt(features)
	Workers         int   `yaml:"workers" json:"workers" validate:"gte=0"`           // 0 = GOMAXPROCS
	Seed            int64 `yaml:"-" json:"-"`
}

// DefaultForestConfig returns 200 trees with min_samples_split=50
func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 200, MinSamplesSplit: 50, Seed: 1}
}

func (c ForestConfig) validate() error {
	if c.Trees < 1 {
		return fmt.Errorf("forest trees must be >= 1, got %d", c.Trees)
	}
	if c.MinSamplesSplit < 2 {
		return fmt.Errorf("forest min_samples_split must be >= 2, got %d", c.MinSamplesSplit)
	}
	if c.MaxDepth < 0 || c.MaxFeatures < 0 {
		return fmt.Errorf("forest max_depth and max_features must be >= 0")
	}
	return nil
}

// node 트리 노드 (leaf 이면 feature = -1)
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	prob      float64 // leaf: P(y=1)
}

// RandomForest bootstrap + 랜덤 피처 서브셋 + Gini 분할 결정 트리 앙상블
// 트리 i 는 Seed 와 i 로만 결정되므로 병렬 성장해도 결과가 같음
type RandomForest struct {
	cfg   ForestConfig
	width int
	trees []*node
}

// NewRandomForest creates an unfitted forest
func NewRandomForest(cfg ForestConfig) *RandomForest {
	return &RandomForest{cfg: cfg}
}

// Fit grows cfg.Trees trees on bootstrap samples of (X, y)
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if err := f.cfg.validate(); err != nil {
		return err
	}
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}

	mtry := f.cfg.MaxFeatures
	if mtry <= 0 || mtry > width {
		mtry = int(math.Sqrt(float64(width)))
		if mtry < 1 {
			mtry = 1
		}
	}

	workers := f.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > f.cfg.Trees {
		workers = f.cfg.Trees
	}

	trees := make([]*node, f.cfg.Trees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			gr := &grower{
				X:        X,
				y:        y,
				width:    width,
				mtry:     mtry,
				minSplit: f.cfg.MinSamplesSplit,
				maxDepth: f.cfg.MaxDepth,
				rng:      rand.New(rand.NewSource(f.cfg.Seed*1_000_003 + int64(i))),
			}
			trees[i] = gr.grow(gr.bootstrap(len(X)), 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.width = width
	f.trees = trees
	return nil
}

// PredictProba averages leaf probabilities over all trees
func (f *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkPredictSet(X, f.width); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

func (n *node) predict(row []float64) float64 {
	for n.feature >= 0 {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

// grower 트리 1개 성장 상태 (고루틴 로컬)
type grower struct {
	X        [][]float64
	y        []int
	width    int
	mtry     int
	minSplit int
	maxDepth int
	rng      *rand.Rand
}

func (g *grower) bootstrap(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = g.rng.Intn(n)
	}
	return idx
}

func (g *grower) grow(idx []int, depth int) *node {
	pos := 0
	for _, i := range idx {
		pos += g.y[i]
	}
	leaf := &node{feature: -1, prob: float64(pos) / float64(len(idx))}

	if len(idx) < g.minSplit || pos == 0 || pos == len(idx) {
		return leaf
	}
	if g.maxDepth > 0 && depth >= g.maxDepth {
		return leaf
	}

	feature, threshold, ok := g.bestSplit(idx, pos)
	if !ok {
		return leaf
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return leaf
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// bestSplit searches mtry random features for the largest Gini decrease
func (g *grower) bestSplit(idx []int, pos int) (int, float64, bool) {
	n := float64(len(idx))
	parent := gini(float64(pos), n)

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(idx))
	candidates := g.rng.Perm(g.width)

	tried := 0
	for _, feature := range candidates {
		// sklearn 과 같이 유효 분할이 없으면 mtry 를 넘겨 계속 탐색
		if tried >= g.mtry && bestFeature >= 0 {
			break
		}
		tried++

		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, b int) int {
			va, vb := g.X[a][feature], g.X[b][feature]
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			default:
				return 0
			}
		})

		leftN, leftPos := 0.0, 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftN++
			leftPos += float64(g.y[sorted[k]])

			cur, next := g.X[sorted[k]][feature], g.X[sorted[k+1]][feature]
			if cur == next {
				continue
			}

			rightN := n - leftN
			rightPos := float64(pos) - leftPos
			weighted := (leftN*gini(leftPos, leftN) + rightN*gini(rightPos, rightN)) / n
			gain := parent - weighted
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = feature
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// gini impurity of a binary node with pos positives out of n
func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}
