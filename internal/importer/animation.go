package importer

import (
	"fmt"

	"mdlconv/internal/model"
	"mdlconv/internal/scene"

	"github.com/pkg/errors"
)

func (p *parser) importAnimations() error {
	for ai := 0; ai < p.src.NumAnimations(); ai++ {
		sa, err := p.src.Animation(ai)
		if err != nil {
			return errors.Wrapf(err, "animation %d", ai)
		}
		anim, err := p.importAnimation(ai, sa)
		if err != nil {
			return err
		}
		if len(anim.PerNode) == 0 {
			p.log.Debug("dropped empty animation", "name", anim.Name)
			continue
		}
		p.m.Animations = append(p.m.Animations, anim)
	}
	return nil
}

// importAnimation converts key times from ticks to seconds. Keys sharing a
// time on the same curve collapse to the last one in source order.
func (p *parser) importAnimation(index int, sa *scene.Animation) (*model.Animation, error) {
	name := sa.Name
	if name == "" {
		name = fmt.Sprintf("AutoAnimName_%d", index)
	}
	tps := sa.TicksPerSecond
	if tps <= 0 {
		tps = 1
	}
	anim := model.NewAnimation(name, float32(sa.Duration/tps))

	overwritten := 0
	for _, ch := range sa.Channels {
		node := p.m.FindFirstNodeByName(ch.NodeName)
		if node < 0 {
			return nil, expectf("animation %q: channel targets unknown node %q", name, ch.NodeName)
		}
		kf, ok := anim.PerNode[node]
		if !ok {
			kf = &model.KeyFrames{}
		}
		for _, k := range ch.PositionKeys {
			if kf.SetPosition(float32(k.Time/tps), k.Value) {
				overwritten++
			}
		}
		for _, k := range ch.RotationKeys {
			if kf.SetRotation(float32(k.Time/tps), k.Value) {
				overwritten++
			}
		}
		for _, k := range ch.ScalingKeys {
			if kf.SetScaling(float32(k.Time/tps), k.Value) {
				overwritten++
			}
		}
		if kf.HasAnyKeys() {
			anim.PerNode[node] = kf
		}
	}

	if p.settings.ReduceKeyFrames {
		removed := 0
		for _, kf := range anim.PerNode {
			removed += ReduceKeyFrames(kf)
		}
		p.log.Debug("reduced keyframes", "animation", name, "removed", removed)
	}
	if overwritten > 0 {
		p.log.Debug("overwrote keyframes with duplicate times", "animation", name, "count", overwritten)
	}
	return anim, nil
}
