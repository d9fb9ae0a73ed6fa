package scene

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/game_object"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"
)

// DefaultSphereSegments is the latitude and longitude resolution of the default sphere.
const DefaultSphereSegments = 64

// DefaultLight returns the scene's default directional light: white, at (0,0,5), facing (0,1,1), radius 200.
func DefaultLight() game_object.GameObject {
	return game_object.NewLightObject(light.NewLight(), game_object.WithName("Sun"), game_object.WithPosition(0, 0, 5))
}

// DefaultContent builds the starter scene: a floor slab, an opaque sphere, a translucent
// sphere, a cube and the default light.
//
// Returns:
//   - []game_object.GameObject: the objects, ready for WithObjects
//   - error: when a mesh cannot be built
func DefaultContent() ([]game_object.GameObject, error) {
	sphere, err := model.NewSphere(DefaultSphereSegments, true, model.WithName("sphere"))
	if err != nil {
		return nil, err
	}
	glass, err := model.NewSphere(DefaultSphereSegments, true, model.WithName("glass"),
		model.WithMaterial(material.NewMaterial(material.WithName("glass"), material.WithAlbedo(0.4, 0.7, 1, 0.35))))
	if err != nil {
		return nil, err
	}
	cube, err := model.NewCube(model.WithName("cube"),
		model.WithMaterial(material.NewMaterial(material.WithAlbedo(0.8, 0.3, 0.2, 1), material.WithRoughness(0.6))))
	if err != nil {
		return nil, err
	}
	floor, err := model.NewCube(model.WithName("floor"))
	if err != nil {
		return nil, err
	}

	return []game_object.GameObject{
		game_object.NewMeshObject(floor, game_object.WithPosition(0, -1.5, 0), game_object.WithScale(12, 0.2, 12)),
		game_object.NewMeshObject(sphere, game_object.WithPosition(-1.5, 0, 0)),
		game_object.NewMeshObject(glass, game_object.WithPosition(1.5, 0, 0)),
		game_object.NewMeshObject(cube, game_object.WithPosition(0, 0, -2), game_object.WithEulerAngles(0, 45, 0)),
		DefaultLight(),
	}, nil
}
