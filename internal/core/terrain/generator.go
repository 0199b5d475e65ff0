package terrain

import (
	"math"
	"sync"

	"github.com/ojrac/opensimplex-go"
)

const (
	seaLevel = 0.0

	// DefaultMountainThreshold is the elevation above which tiles become Obstacle.
	DefaultMountainThreshold = 0.8
)

type octaves struct {
	count     int
	frequency float64
}

var (
	continentOctaves = octaves{count: 4, frequency: 0.02}
	erosionOctaves   = octaves{count: 3, frequency: 0.075}
	peakOctaves      = octaves{count: 5, frequency: 0.25}
)

type noiseLayers struct {
	continent opensimplex.Noise
	erosion   opensimplex.Noise
	peaks     opensimplex.Noise
}

// Generator produces chunks as a pure function of (seed, chunk). It memoizes
// the noise permutation tables per seed; the seed itself is always passed in.
type Generator struct {
	mountain float64

	mx     sync.Mutex
	layers map[int64]*noiseLayers
}

func NewGenerator(mountainThreshold float64) *Generator {
	if mountainThreshold <= seaLevel {
		mountainThreshold = DefaultMountainThreshold
	}
	return &Generator{
		mountain: mountainThreshold,
		layers:   make(map[int64]*noiseLayers),
	}
}

// Generate builds the tiles of cc for the given world seed.
func (g *Generator) Generate(seed int64, cc ChunkCoord) *Tiles {
	layers := g.layersFor(seed)
	ox, oy := cc.Origin()

	tiles := new(Tiles)
	for ly := 0; ly < ChunkSize; ly++ {
		for lx := 0; lx < ChunkSize; lx++ {
			tiles[ly*ChunkSize+lx] = g.classify(layers.elevation(ox+lx, oy+ly))
		}
	}
	return tiles
}

// Elevation samples the combined height field at tile (x, y), in [-1, 1].
func (g *Generator) Elevation(seed int64, x, y int) float64 {
	return g.layersFor(seed).elevation(x, y)
}

func (g *Generator) classify(elevation float64) Type {
	switch {
	case elevation < seaLevel:
		return Water
	case elevation > g.mountain:
		return Obstacle
	default:
		return Land
	}
}

func (g *Generator) layersFor(seed int64) *noiseLayers {
	g.mx.Lock()
	defer g.mx.Unlock()

	if l, ok := g.layers[seed]; ok {
		return l
	}
	l := &noiseLayers{
		continent: opensimplex.New(seed),
		erosion:   opensimplex.New(seed + 1),
		peaks:     opensimplex.New(seed + 2),
	}
	g.layers[seed] = l
	return l
}

func (l *noiseLayers) elevation(x, y int) float64 {
	// axial to cartesian so features are not skewed along the r axis
	px := float64(x) + float64(y)*0.5
	py := float64(y) * math.Sqrt(3) / 2

	continent := fbm(l.continent, px, py, continentOctaves)
	erosion := fbm(l.erosion, px, py, erosionOctaves)
	peaks := ridged(l.peaks, px, py, peakOctaves)

	return clamp(0.7*continent+0.2*erosion+0.1*peaks, -1, 1)
}

func fbm(n opensimplex.Noise, x, y float64, o octaves) float64 {
	sum, amp, norm, freq := 0.0, 1.0, 0.0, o.frequency
	for i := 0; i < o.count; i++ {
		sum += amp * n.Eval2(x*freq, y*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

func ridged(n opensimplex.Noise, x, y float64, o octaves) float64 {
	sum, amp, norm, freq := 0.0, 1.0, 0.0, o.frequency
	for i := 0; i < o.count; i++ {
		r := 1 - math.Abs(n.Eval2(x*freq, y*freq))
		sum += amp * (r*2 - 1)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
