// Package reader loads Wavefront OBJ scenes into a scene.Builder. Besides
// the usual geometry and material statements the reader understands a few
// extensions for cameras, lights, mesh instances and height fields.
package reader

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/asset"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/hfield"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/texture"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

// A parsed face. Normals are either empty or one per vertex.
type face struct {
	vertices []types.Vec3
	normals  []types.Vec3
	material *material
}

// A mesh is a named group of faces.
type mesh struct {
	name  string
	faces []*face
}

// A mesh instance reuses the faces of a mesh under its own transform.
type meshInstance struct {
	mesh      *mesh
	transform types.Mat4
}

// A material is a surface plus the textures loaded for it.
type material struct {
	name     string
	surface  geometry.Surface
	textures []geometry.Texture
}

type wavefrontSceneReader struct {
	logger log.Logger

	builder *scene.Builder
	camera  *scene.Camera

	// Materials by name and the currently selected one.
	materials   map[string]*material
	curMaterial *material

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	meshes    []*mesh
	instances []*meshInstance

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

func newWavefrontReader(b *scene.Builder) *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:    log.New("wavefront"),
		builder:   b,
		materials: make(map[string]*material),
	}
}

// Read loads the scene at pathToScene, a local path or URL, into b. The
// builder's camera is replaced if the scene defines one.
func Read(pathToScene string, b *scene.Builder) error {
	res, err := asset.Open(pathToScene, nil)
	if err != nil {
		return err
	}
	defer res.Close()
	return ReadResource(res, b)
}

// ReadResource loads an already opened scene into b.
func ReadResource(res *asset.Resource, b *scene.Builder) error {
	return newWavefrontReader(b).Read(res)
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) error {
	r.logger.Noticef("parsing scene from %s", sceneRes.Path())
	start := time.Now()

	if err := r.parse(sceneRes); err != nil {
		return err
	}

	// If no mesh instances are defined, create instances for each defined mesh
	if len(r.instances) == 0 {
		r.createDefaultMeshInstances()
	}

	faces := 0
	for _, inst := range r.instances {
		n, err := r.emitInstance(inst)
		if err != nil {
			return err
		}
		faces += n
	}
	if r.camera != nil {
		r.builder.SetCamera(r.camera)
	}

	r.logger.Infof("parsed scene with %d faces in %d ms", faces, time.Since(start).Nanoseconds()/1000000)
	return nil
}

// Generate a mesh instance with an identity transformation for each defined mesh.
func (r *wavefrontSceneReader) createDefaultMeshInstances() {
	for _, m := range r.meshes {
		r.instances = append(r.instances, &meshInstance{mesh: m, transform: types.Ident4()})
	}
}

// Add the faces of an instance to the builder. Degenerate faces are
// dropped with a warning.
func (r *wavefrontSceneReader) emitInstance(inst *meshInstance) (int, error) {
	ctx := scene.NewContext().Transform(inst.transform)
	added := 0
	for index, f := range inst.mesh.faces {
		poly, err := geometry.NewPolygon(f.vertices, f.normals, nil, false)
		if err == geometry.ErrDegenerate {
			r.logger.Warningf("mesh %s: dropping degenerate face %d", inst.mesh.name, index)
			continue
		} else if err != nil {
			return added, err
		}

		ctx.Push()
		ctx.WithSurface(f.material.surface)
		for _, tx := range f.material.textures {
			ctx.WithTexture(tx)
		}
		_, err = r.builder.AddNamed(ctx, inst.mesh.name, poly)
		ctx.Pop()
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return errors.New(errMsg)
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Create and select a default material for surfaces not using one.
func (r *wavefrontSceneReader) defaultMaterial() *material {
	mat, exists := r.materials[""]
	if !exists {
		surf := geometry.DefaultSurface()
		surf.Colour = types.Grey(0.7)
		mat = &material{surface: surf}
		r.materials[""] = mat
	}
	r.curMaterial = mat
	return mat
}

func (r *wavefrontSceneReader) curMesh() *mesh {
	// If no object has been defined create a default one
	if len(r.meshes) == 0 {
		r.meshes = append(r.meshes, &mesh{name: "default"})
	}
	return r.meshes[len(r.meshes)-1]
}

func (r *wavefrontSceneReader) curCamera() *scene.Camera {
	if r.camera == nil {
		r.camera = scene.NewCamera(types.Vec3{}, types.XYZ(0, 0, -1), types.XYZ(0, 1, 0))
		r.camera.FOV = 45
	}
	return r.camera
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.Open(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for 'usemtl'; expected 1 argument; got %d", len(lineTokens)-1)
			}

			mat, exists := r.materials[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, "undefined material with name '%s'", lineTokens[1])
			}
			r.curMaterial = mat
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for '%s'; expected 1 argument for object name; got %d", lineTokens[0], len(lineTokens)-1)
			}

			r.meshes = append(r.meshes, &mesh{name: lineTokens[1]})
		case "f":
			f, err := r.parseFace(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			m := r.curMesh()
			m.faces = append(m.faces, f)
		case "camera_fov":
			r.curCamera().FOV, err = parseFloat(lineTokens)
		case "camera_eye":
			r.curCamera().Eye, err = parseVec3(lineTokens)
		case "camera_look":
			r.curCamera().Look, err = parseVec3(lineTokens)
		case "camera_up":
			r.curCamera().Up, err = parseVec3(lineTokens)
		case "light", "light_distant":
			err = r.parseLight(lineTokens)
		case "instance":
			instance, err := r.parseMeshInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.instances = append(r.instances, instance)
		case "heightfield":
			err = r.parseHeightField(lineTokens, res)
		default:
			r.logger.Debugf("%s:%d: ignoring unsupported statement '%s'", res.Path(), lineNum, lineTokens[0])
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, err.Error())
	}
	return nil
}

// Parse a light definition. Both forms take six arguments:
// light x y z r g b
// light_distant dx dy dz r g b
func (r *wavefrontSceneReader) parseLight(lineTokens []string) error {
	if len(lineTokens) != 7 {
		return fmt.Errorf("unsupported syntax for '%s'; expected 6 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}
	v, err := parseVec3(lineTokens[:4])
	if err != nil {
		return err
	}
	c, err := parseVec3(append([]string{lineTokens[0]}, lineTokens[4:]...))
	if err != nil {
		return err
	}

	col := types.Color{c[0], c[1], c[2]}
	if lineTokens[0] == "light" {
		r.builder.AddLight(scene.NewPointLight(v, col))
	} else {
		r.builder.AddLight(scene.NewDistantLight(v, col))
	}
	return nil
}

// Parse a height field reference: heightfield heights_file [colours_file].
// The field is added with the current material in its own unit square.
func (r *wavefrontSceneReader) parseHeightField(lineTokens []string, relTo *asset.Resource) error {
	if len(lineTokens) != 2 && len(lineTokens) != 3 {
		return fmt.Errorf("unsupported syntax for 'heightfield'; expected 1 or 2 arguments; got %d", len(lineTokens)-1)
	}

	heightRes, err := asset.Open(lineTokens[1], relTo)
	if err != nil {
		return err
	}
	defer heightRes.Close()
	xsize, ysize, z, err := hfield.ReadHeights(heightRes)
	if err != nil {
		return err
	}

	var cols []types.Color
	if len(lineTokens) == 3 {
		colRes, err := asset.Open(lineTokens[2], relTo)
		if err != nil {
			return err
		}
		defer colRes.Close()
		cx, cy, c, err := hfield.ReadColours(colRes)
		if err != nil {
			return err
		}
		if cx != xsize || cy != ysize {
			return fmt.Errorf("colour field is %dx%d but the height field is %dx%d", cx, cy, xsize, ysize)
		}
		cols = c
	}

	f, err := hfield.New(xsize, ysize, z, cols, true)
	if err != nil {
		return err
	}

	mat := r.curMaterial
	if mat == nil {
		mat = r.defaultMaterial()
	}
	ctx := scene.NewContext().WithSurface(mat.surface)
	for _, tx := range mat.textures {
		ctx.WithTexture(tx)
	}
	_, err = r.builder.AddNamed(ctx, heightRes.Name(), hfield.NewPrimitive(f))
	return err
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseMeshInstance(lineTokens []string) (*meshInstance, error) {
	if len(lineTokens) != 11 {
		return nil, fmt.Errorf("unsupported syntax for 'instance'; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d", len(lineTokens)-1)
	}

	// Find object by name
	var target *mesh
	for _, m := range r.meshes {
		if m.name == lineTokens[1] {
			target = m
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("unknown mesh with name '%s'", lineTokens[1])
	}

	var values [9]float64
	for index := range values {
		v, err := strconv.ParseFloat(lineTokens[index+2], 64)
		if err != nil {
			return nil, err
		}
		values[index] = v
	}
	translation := types.XYZ(values[0], values[1], values[2])
	scale := types.XYZ(values[6], values[7], values[8])

	// Rotation angles are given in degrees
	yawQuat := types.QuatFromAxisAngle(types.XYZ(1, 0, 0), values[3]*math.Pi/180)
	pitchQuat := types.QuatFromAxisAngle(types.XYZ(0, 1, 0), values[4]*math.Pi/180)
	rollQuat := types.QuatFromAxisAngle(types.XYZ(0, 0, 1), values[5]*math.Pi/180)
	rotMat := rollQuat.Mul(pitchQuat.Mul(yawQuat)).Normalize().Mat4()

	// Points are scaled, then rotated, then translated
	return &meshInstance{
		mesh:      target,
		transform: types.Scale4(scale).Mul4(rotMat).Mul4(types.Translate4(translation)),
	}, nil
}

// Parse face definition. Each face definition consists of at least 3
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 args separated by a slash character. The following
// formats are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate
// an offset off the end of the vertex/uv list. Vertex normals are only kept
// when every vertex has one.
func (r *wavefrontSceneReader) parseFace(lineTokens []string) (*face, error) {
	if len(lineTokens) < 4 {
		return nil, fmt.Errorf("unsupported syntax for 'f'; expected at least 3 arguments; got %d", len(lineTokens)-1)
	}

	nVerts := len(lineTokens) - 1
	f := &face{vertices: make([]types.Vec3, nVerts)}
	normals := make([]types.Vec3, 0, nVerts)
	expIndices := 0
	for arg := 0; arg < nVerts; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		f.vertices[arg] = r.vertexList[vOffset]

		// Tex coords are validated but not used; tiles follow the
		// primitive's own parameterisation
		if len(vTokens) > 1 && vTokens[1] != "" {
			if _, err = selectFaceCoordIndex(vTokens[1], len(r.uvList)); err != nil {
				return nil, fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}

		if len(vTokens) > 2 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList))
			if err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals = append(normals, r.normalList[vOffset])
		}
	}
	if len(normals) == nVerts {
		f.normals = normals
	}

	// If no material defined select the default
	f.material = r.curMaterial
	if f.material == nil {
		f.material = r.defaultMaterial()
	}
	return f, nil
}

// Parse a wavefront material library.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	scanner := bufio.NewScanner(res)

	var curMaterial *material

	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		if lineTokens[0] == "newmtl" {
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "unsupported syntax for 'newmtl'; expected 1 argument; got %d", len(lineTokens)-1)
			}

			matName := lineTokens[1]
			if _, exists := r.materials[matName]; exists {
				return r.emitError(res.Path(), lineNum, "material '%s' already defined", matName)
			}

			curMaterial = &material{name: matName, surface: geometry.DefaultSurface()}
			r.materials[matName] = curMaterial
			continue
		}

		if curMaterial == nil {
			return r.emitError(res.Path(), lineNum, "got '%s' without a 'newmtl'", lineTokens[0])
		}

		surf := &curMaterial.surface
		var v types.Vec3
		switch lineTokens[0] {
		case "Kd", "Ka", "Tf", "Kr":
			if v, err = parseVec3(lineTokens); err != nil {
				break
			}
			col := types.Color{v[0], v[1], v[2]}
			switch lineTokens[0] {
			case "Kd":
				surf.Colour = col
			case "Ka":
				surf.Ambient = col
			case "Tf":
				surf.Trans = col
			case "Kr":
				surf.Refl = col
			}
		case "Ks":
			// The surface has a single specular coefficient
			if v, err = parseVec3(lineTokens); err == nil {
				surf.Ks = math.Max(v[0], math.Max(v[1], v[2]))
			}
		case "Ns":
			surf.KsExp, err = parseFloat(lineTokens)
		case "Ni":
			surf.RI, err = parseFloat(lineTokens)
		case "d":
			surf.Alpha, err = parseFloat(lineTokens)
		case "Fo":
			surf.Falloff, err = parseFloat(lineTokens)
		case "map_Kd":
			if len(lineTokens) != 2 {
				err = fmt.Errorf("unsupported syntax for 'map_Kd'; expected 1 argument; got %d", len(lineTokens)-1)
				break
			}

			tile, tileErr := texture.LoadTile(lineTokens[1], res)
			if tileErr != nil {
				// Ignore missing textures
				if os.IsNotExist(errors.Cause(tileErr)) {
					r.logger.Warningf("ignoring missing texture %s", lineTokens[1])
					continue
				}
				err = tileErr
				break
			}
			curMaterial.textures = append(curMaterial.textures, tile)
		default:
			r.logger.Debugf("%s:%d: ignoring unsupported material statement '%s'", res.Path(), lineNum, lineTokens[0])
		}

		// Report any errors
		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}

	return scanner.Err()
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat(lineTokens []string) (float64, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}

	return strconv.ParseFloat(lineTokens[1], 64)
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 64)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = coord
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf("unsupported syntax for '%s'; expected 2 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 64)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = coord
	}
	return v, nil
}
