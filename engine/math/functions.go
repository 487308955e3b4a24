package math

import (
	m "math"
)

const (
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
	/** @brief Tolerance below which a duration or frame rate is treated as zero. */
	K_ZERO_TOLERANCE float64 = 1e-6
)

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

// Lerp linearly interpolates between two scalars.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Vec3Lerp linearly interpolates between two vectors component-wise.
func Vec3Lerp(a, b Vec3, t float32) Vec3 {
	return Vec3{
		X: Lerp(a.X, b.X, t),
		Y: Lerp(a.Y, b.Y, t),
		Z: Lerp(a.Z, b.Z, t),
	}
}

// QuaternionDot returns the dot product of two quaternions.
func QuaternionDot(a, b Quaternion) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// QuaternionNormalize returns a unit-length copy of q. A degenerate
// quaternion normalizes to identity.
func QuaternionNormalize(q Quaternion) Quaternion {
	length := ksqrt(QuaternionDot(q, q))
	if length < K_FLOAT_EPSILON {
		return NewQuatIdentity()
	}
	inv := 1.0 / length
	return Quaternion{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// QuaternionNlerp interpolates between two rotations along the shortest arc
// and renormalizes the result.
func QuaternionNlerp(a, b Quaternion, t float32) Quaternion {
	// Take the short way around.
	if QuaternionDot(a, b) < 0 {
		b = Quaternion{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
	}
	return QuaternionNormalize(Quaternion{
		X: Lerp(a.X, b.X, t),
		Y: Lerp(a.Y, b.Y, t),
		Z: Lerp(a.Z, b.Z, t),
		W: Lerp(a.W, b.W, t),
	})
}
