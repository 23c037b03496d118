package gltfscene

import (
	"fmt"

	"mdlconv/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// convertAnimations exposes every glTF animation with key times in
// seconds (TicksPerSecond 1). Morph target weights are not carried.
func (c *converter) convertAnimations() error {
	for ai, ga := range c.doc.Animations {
		anim := &scene.Animation{Name: ga.Name, TicksPerSecond: 1}
		for ci, ch := range ga.Channels {
			if ch.Target.Node == nil || ch.Target.Path == gltf.TRSWeights {
				continue
			}
			if ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
				return fmt.Errorf("gltf: animation %d channel %d: sampler %d out of range", ai, ci, ch.Sampler)
			}
			sampler := ga.Samplers[ch.Sampler]
			node := *ch.Target.Node
			if node < 0 || node >= len(c.doc.Nodes) {
				return fmt.Errorf("gltf: animation %d channel %d: node %d out of range", ai, ci, node)
			}

			times, values, err := c.samplerData(sampler.Input, sampler.Output)
			if err != nil {
				return fmt.Errorf("gltf: animation %d channel %d: %w", ai, ci, err)
			}
			// Cubic spline samplers store in-tangent, value, out-tangent per key.
			stride := 1
			if sampler.Interpolation == gltf.InterpolationCubicSpline {
				stride = 3
			}

			out := scene.Channel{NodeName: c.names[node]}
			for k, t := range times {
				vi := k*stride + stride/2
				if t > anim.Duration {
					anim.Duration = t
				}
				switch ch.Target.Path {
				case gltf.TRSTranslation, gltf.TRSScale:
					v3, ok := values.([][3]float32)
					if !ok || vi >= len(v3) {
						return fmt.Errorf("gltf: animation %d channel %d: bad output %T", ai, ci, values)
					}
					key := scene.VectorKey{Time: t, Value: mgl32.Vec3(v3[vi])}
					if ch.Target.Path == gltf.TRSTranslation {
						out.PositionKeys = append(out.PositionKeys, key)
					} else {
						out.ScalingKeys = append(out.ScalingKeys, key)
					}
				case gltf.TRSRotation:
					v4, ok := values.([][4]float32)
					if !ok || vi >= len(v4) {
						return fmt.Errorf("gltf: animation %d channel %d: bad output %T", ai, ci, values)
					}
					q := v4[vi]
					out.RotationKeys = append(out.RotationKeys, scene.QuatKey{
						Time:  t,
						Value: mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}},
					})
				}
			}
			anim.Channels = append(anim.Channels, out)
		}
		c.out.Animations = append(c.out.Animations, anim)
	}
	return nil
}

func (c *converter) samplerData(input, output int) ([]float64, any, error) {
	inAcr, err := c.accessor(input)
	if err != nil {
		return nil, nil, err
	}
	outAcr, err := c.accessor(output)
	if err != nil {
		return nil, nil, err
	}
	in, err := modeler.ReadAccessor(c.doc, inAcr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	ts, ok := in.([]float32)
	if !ok {
		return nil, nil, fmt.Errorf("input has type %T", in)
	}
	out, err := modeler.ReadAccessor(c.doc, outAcr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read output: %w", err)
	}
	times := make([]float64, len(ts))
	for i, t := range ts {
		times[i] = float64(t)
	}
	return times, out, nil
}
