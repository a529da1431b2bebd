package reader

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/asset"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

func TestFloatParser(t *testing.T) {
	expError := "unsupported syntax for 'v'; expected 1 argument; got 0"
	_, err := parseFloat([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseFloat([]string{"v", "not-a-float"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseFloat([]string{"v", "3.14"})
	if err != nil {
		t.Fatal(err)
	}

	if v != 3.14 {
		t.Fatalf("expected parsed value to be 3.14; got %f", v)
	}
}

func TestVec2Parser(t *testing.T) {
	expError := "unsupported syntax for 'v'; expected 2 arguments; got 0"
	_, err := parseVec2([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec2([]string{"v", "not-a-float", "2"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec2([]string{"v", "3.14", "0"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec2{3.14, 0}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestVec3Parser(t *testing.T) {
	expError := "unsupported syntax for 'v'; expected 3 arguments; got 0"
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec3{3.14, 0, 0.4}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordinate(t *testing.T) {
	expError := "index out of bounds"
	type spec struct {
		in       string
		listLen  int
		out      int
		expError string
	}
	specs := []spec{
		{"2", 1, -1, expError},
		{"-2", 1, -1, expError},
		{"1", 10, 0, ""}, // indices are 1-based
		{"-1", 10, 9, ""},
	}

	for idx, s := range specs {
		v, err := selectFaceCoordIndex(s.in, s.listLen)
		if s.expError != "" && (err == nil || err.Error() != s.expError) {
			t.Fatalf("[spec %d] expected error %s; got %v", idx, s.expError, err)
		} else if v != s.out {
			t.Fatalf("[spec %d] expected index to be %d; got %d", idx, s.out, v)
		}
	}
}

func mockResource(payload string) *asset.Resource {
	return asset.FromStream("embedded", strings.NewReader(payload))
}

func TestDefaultMeshInstanceGeneration(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 0 1 0
vn 1 0 0
vt 0 0
vn 0 1 0
vt 0 1
vn 0 1 0
vt 1 0
vn 0 0 1
# Comment
f 1/1/1 2/2/2 -1/-1/-1
f 1 2 3
`

	b := scene.NewBuilder()
	if err := ReadResource(mockResource(payload), b); err != nil {
		t.Fatal(err)
	}

	if b.Len() != 2 {
		t.Fatalf("expected 2 faces to be added; got %d", b.Len())
	}

	o := b.Object(0)
	if o.Name != "testObj" || !o.ToWorld.IsIdent() {
		t.Fatalf("expected an untransformed face of testObj; got %q with %v", o.Name, o.ToWorld)
	}
	poly := o.Prim.(*geometry.Polygon)
	if len(poly.Normals) != 3 {
		t.Fatalf("expected the first face to carry 3 vertex normals; got %d", len(poly.Normals))
	}
	if len(b.Object(1).Prim.(*geometry.Polygon).Normals) != 0 {
		t.Fatal("expected the second face to have no vertex normals")
	}
	if o.Surface.Colour != types.Grey(0.7) {
		t.Fatalf("expected faces without a material to use the default one; got %v", o.Surface.Colour)
	}
}

func TestMeshInstances(t *testing.T) {
	payload := `
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
instance quad 0 0 0 0 0 0 1 1 1
instance quad 10 0 0 0 0 90 2 2 2
`

	b := scene.NewBuilder()
	if err := ReadResource(mockResource(payload), b); err != nil {
		t.Fatal(err)
	}

	if b.Len() != 2 {
		t.Fatalf("expected one face per instance; got %d", b.Len())
	}

	// Scaled by 2, rotated 90 degrees around z, then moved by 10 along x.
	got := b.Object(1).ToWorld.MulPoint(types.XYZ(1, 0, 0))
	if exp := types.XYZ(10, 2, 0); !got.ApproxEqual(exp, 1e-9) {
		t.Fatalf("expected instance transform to map (1, 0, 0) to %v; got %v", exp, got)
	}
}

func TestDegenerateFacesAreDropped(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 2 0 0
v 0 1 0
f 1 2 3
f 1 2 4
`

	b := scene.NewBuilder()
	if err := ReadResource(mockResource(payload), b); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected the collinear face to be dropped; got %d objects", b.Len())
	}
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}

	specs := []spec{
		{"usemtl missing", "undefined material with name 'missing'"},
		{"v 0 0 0\nf 1 2 3", "could not parse vertex coord for face argument 1: index out of bounds"},
		{"v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2/1 3", "expected each face argument to contain 1 indices; arg 1 contains 2 indices"},
		{"f 1 2", "unsupported syntax for 'f'; expected at least 3 arguments; got 2"},
		{"instance nothing 0 0 0 0 0 0 1 1 1", "unknown mesh with name 'nothing'"},
		{"camera_eye 1 2", "unsupported syntax for 'camera_eye'; expected 3 arguments; got 2"},
		{"light 0 0 0 1 1", "unsupported syntax for 'light'; expected 6 arguments; got 5"},
		{"o", "unsupported syntax for 'o'; expected 1 argument for object name; got 0"},
	}

	for index, s := range specs {
		err := ReadResource(mockResource(s.payload), scene.NewBuilder())
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
		if !strings.Contains(err.Error(), "[embedded: ") {
			t.Fatalf("[spec %d] expected error to carry the file and line; got %v", index, err)
		}
	}
}

func heightFieldPayload(t *testing.T) []byte {
	var buf bytes.Buffer
	buf.WriteString("HEIGHTFIELD 2 2\n")
	if err := binary.Write(&buf, binary.LittleEndian, []float32{0, 0.5, 0.5, 1}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRemoteScene(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{0, 255, 0, 255})
	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, img); err != nil {
		t.Fatal(err)
	}
	hf := heightFieldPayload(t)

	files := map[string]string{
		"/scenes/room.obj": `
mtllib room.mtl
camera_eye 0 -5 1
camera_look 0 0 0
camera_up 0 0 1
camera_fov 60
light 0 -5 10 1 1 1
light_distant 0 0 1 0.5 0.5 0.5
call models/tri.obj
usemtl glass
heightfield terrain.hf
`,
		"/scenes/room.mtl": `
newmtl red
Kd 1 0 0
Ks 0.2 0.5 0.1
Ns 20
map_Kd checker.png
map_Kd missing.png

newmtl glass
Kd 1 1 1
Tf 0.9 0.9 0.9
Ni 1.5
d 0.8
`,
		"/scenes/checker.png": imgBuf.String(),
		"/scenes/terrain.hf":  string(hf),
		"/scenes/models/tri.obj": `
usemtl red
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := files[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	b := scene.NewBuilder()
	if err := Read(server.URL+"/scenes/room.obj", b); err == nil || !strings.Contains(err.Error(), "missing.png") {
		t.Fatalf("expected a missing remote texture to be reported; got %v", err)
	}

	// Without the broken texture reference the scene loads.
	files["/scenes/room.mtl"] = strings.Replace(files["/scenes/room.mtl"], "map_Kd missing.png\n", "", 1)
	b = scene.NewBuilder()
	if err := Read(server.URL+"/scenes/room.obj", b); err != nil {
		t.Fatal(err)
	}

	if b.Len() != 2 {
		t.Fatalf("expected a face and a height field; got %d objects", b.Len())
	}

	hfObj, tri := b.Object(0), b.Object(1)
	if hfObj.Kind() != geometry.HeightFieldKind || hfObj.Name != "terrain.hf" {
		t.Fatalf("expected the height field first; got %s %q", hfObj.Kind(), hfObj.Name)
	}
	if hfObj.Surface.RI != 1.5 || hfObj.Surface.Alpha != 0.8 || hfObj.Surface.Trans != types.Grey(0.9) {
		t.Fatalf("expected the glass material on the height field; got %+v", hfObj.Surface)
	}

	if tri.Surface.Colour != (types.Color{1, 0, 0}) || tri.Surface.Ks != 0.5 || tri.Surface.KsExp != 20 {
		t.Fatalf("expected the red material on the face; got %+v", tri.Surface)
	}
	if len(tri.Textures) != 1 {
		t.Fatalf("expected the face to carry the tile texture; got %d textures", len(tri.Textures))
	}

	sc, err := b.Build(scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Lights) != 2 || sc.Lights[0].Kind != scene.Point || sc.Lights[1].Kind != scene.Distant {
		t.Fatalf("expected a point and a distant light; got %d lights", len(sc.Lights))
	}
	if sc.Camera.Eye != types.XYZ(0, -5, 1) || sc.Camera.FOV != 60 {
		t.Fatalf("expected the scene camera to be used; got %s", sc.Camera)
	}
}

func TestLocalMissingTextureIsIgnored(t *testing.T) {
	payload := `
newmtl plain
Kd 0.5 0.5 0.5
map_Kd definitely-not-here.png
`
	r := newWavefrontReader(scene.NewBuilder())
	if err := r.parseMaterials(mockResource(payload)); err != nil {
		t.Fatal(err)
	}
	if mat := r.materials["plain"]; mat == nil || len(mat.textures) != 0 {
		t.Fatal("expected the material to load without the missing texture")
	}
}
