package attractor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Singular values below this fraction of the largest are treated as zero
// when inverting, so rank-deficient bases (line, plane) resolve cleanly.
const svdRankTol = 1e-12

// ProjectionModel maps effector positions onto the region of attraction.
//
// The region is encoded by the configured basis: an identity basis leaves
// motion free, a rank-2 basis attracts to a plane, rank-1 to a line, and the
// zero matrix degenerates to the single point at the offset. The weighted
// projection operator
//
//	Pa = B · pinv(Wr·B) · Wr,  Wr = diag(sqrt(w))
//
// is built once per (basis, weights) pair and cached; Project itself is
// allocation-free and cheap enough for a 2 kHz tick.
type ProjectionModel struct {
	basis    mgl64.Mat3
	weights  mgl64.Vec3
	offset   mgl64.Vec3
	operator mgl64.Mat3
	point    bool
	ready    bool
	rebuilds int
}

func NewProjectionModel() *ProjectionModel {
	return &ProjectionModel{}
}

// Update adopts a configuration snapshot, rebuilding the cached operator only
// when the basis or weights differ from the previous snapshot. The offset is
// applied per call and never forces a rebuild.
func (m *ProjectionModel) Update(cfg *Configuration) error {
	m.offset = cfg.Offset
	if m.ready && cfg.Basis == m.basis && cfg.Weights == m.weights {
		return nil
	}
	if !finiteMat(cfg.Basis) || !finiteVec(cfg.Weights) {
		return ErrNumerical
	}

	m.basis = cfg.Basis
	m.weights = cfg.Weights
	m.rebuilds++

	if cfg.Basis == (mgl64.Mat3{}) {
		m.point = true
		m.operator = mgl64.Mat3{}
		m.ready = true
		return nil
	}

	wr := mgl64.Diag3(mgl64.Vec3{
		math.Sqrt(cfg.Weights[0]),
		math.Sqrt(cfg.Weights[1]),
		math.Sqrt(cfg.Weights[2]),
	})
	pinv, err := pseudoInverse(wr.Mul3(cfg.Basis))
	if err != nil {
		return err
	}
	m.operator = cfg.Basis.Mul3(pinv).Mul3(wr)
	m.point = false
	m.ready = true
	return nil
}

// Project returns the closest point to p on the region of attraction under
// the weighted metric. In point mode every input maps to the offset.
func (m *ProjectionModel) Project(p mgl64.Vec3) mgl64.Vec3 {
	if m.point {
		return m.offset
	}
	return m.operator.Mul3x1(p.Sub(m.offset)).Add(m.offset)
}

// pseudoInverse computes the Moore-Penrose inverse of a 3x3 matrix via SVD.
// Singular and near-singular inputs are handled uniformly by zeroing small
// singular values instead of failing.
func pseudoInverse(a mgl64.Mat3) (mgl64.Mat3, error) {
	d := mat.NewDense(3, 3, nil)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			d.Set(row, col, a.At(row, col))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(d, mat.SVDThin); !ok {
		return mgl64.Mat3{}, ErrNumerical
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	cutoff := svdRankTol * sigma[0]
	var inv mat.Dense
	inv.CloneFrom(&v)
	for col := 0; col < 3; col++ {
		scale := 0.0
		if sigma[col] > cutoff && sigma[col] > 0 {
			scale = 1 / sigma[col]
		}
		for row := 0; row < 3; row++ {
			inv.Set(row, col, inv.At(row, col)*scale)
		}
	}
	var pinv mat.Dense
	pinv.Mul(&inv, u.T())

	var out mgl64.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.Set(row, col, pinv.At(row, col))
		}
	}
	return out, nil
}

func finiteVec(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

func finiteMat(m mgl64.Mat3) bool {
	for i := range m {
		if math.IsNaN(m[i]) || math.IsInf(m[i], 0) {
			return false
		}
	}
	return true
}
