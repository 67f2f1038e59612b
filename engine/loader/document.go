package loader

// document is the root of a technique description file.
type document struct {
	Techniques []techniqueDoc `yaml:"techniques" toml:"techniques"`
}

// techniqueDoc declares one technique building node. Optional sections left out keep the node's defaults.
type techniqueDoc struct {
	Name      string        `yaml:"name" toml:"name"`
	Includes  []string      `yaml:"includes" toml:"includes"`
	Common    []sourceDoc   `yaml:"common" toml:"common"`
	Vertex    []sourceDoc   `yaml:"vertex" toml:"vertex"`
	Fragment  []sourceDoc   `yaml:"fragment" toml:"fragment"`
	Defines   []defineDoc   `yaml:"defines" toml:"defines"`
	Samplers  []samplerDoc  `yaml:"samplers" toml:"samplers"`
	Resources *resourcesDoc `yaml:"resources" toml:"resources"`

	Rasterizer       *rasterizerDoc    `yaml:"rasterizer" toml:"rasterizer"`
	DepthStencil     *depthStencilDoc  `yaml:"depth_stencil" toml:"depth_stencil"`
	Blend            *blendDoc         `yaml:"blend" toml:"blend"`
	PolygonOffset    *polygonOffsetDoc `yaml:"polygon_offset" toml:"polygon_offset"`
	StencilReference *stencilRefDoc    `yaml:"stencil_reference" toml:"stencil_reference"`
	BlendFactor      []float32         `yaml:"blend_factor" toml:"blend_factor"`
	Framebuffer      *framebufferDoc   `yaml:"framebuffer" toml:"framebuffer"`
}

// sourceDoc is one source fragment, read from File relative to the description or given Inline.
type sourceDoc struct {
	File   string `yaml:"file" toml:"file"`
	Inline string `yaml:"inline" toml:"inline"`
}

type defineDoc struct {
	Name  string `yaml:"name" toml:"name"`
	Value string `yaml:"value" toml:"value"`
}

type rasterizerDoc struct {
	CullMode  string `yaml:"cull_mode" toml:"cull_mode"`
	FrontFace string `yaml:"front_face" toml:"front_face"`
}

type stencilFaceDoc struct {
	Compare     string `yaml:"compare" toml:"compare"`
	FailOp      string `yaml:"fail_op" toml:"fail_op"`
	DepthFailOp string `yaml:"depth_fail_op" toml:"depth_fail_op"`
	PassOp      string `yaml:"pass_op" toml:"pass_op"`
}

type stencilDoc struct {
	Front     *stencilFaceDoc `yaml:"front" toml:"front"`
	Back      *stencilFaceDoc `yaml:"back" toml:"back"`
	ReadMask  *uint32         `yaml:"read_mask" toml:"read_mask"`
	WriteMask *uint32         `yaml:"write_mask" toml:"write_mask"`
}

type depthStencilDoc struct {
	Test    *bool       `yaml:"test" toml:"test"`
	Write   *bool       `yaml:"write" toml:"write"`
	Compare string      `yaml:"compare" toml:"compare"`
	Stencil *stencilDoc `yaml:"stencil" toml:"stencil"`
}

type blendComponentDoc struct {
	Src       string `yaml:"src" toml:"src"`
	Dst       string `yaml:"dst" toml:"dst"`
	Operation string `yaml:"operation" toml:"operation"`
}

// blendDoc enables blending unless Enabled is set to false. WriteMask lists channels as letters of "rgba".
type blendDoc struct {
	Enabled   *bool              `yaml:"enabled" toml:"enabled"`
	Color     *blendComponentDoc `yaml:"color" toml:"color"`
	Alpha     *blendComponentDoc `yaml:"alpha" toml:"alpha"`
	WriteMask *string            `yaml:"write_mask" toml:"write_mask"`
}

// samplerDoc declares a named sampler state. Address sets all three address modes before the per-axis ones apply.
type samplerDoc struct {
	Name          string   `yaml:"name" toml:"name"`
	Address       string   `yaml:"address" toml:"address"`
	AddressU      string   `yaml:"address_u" toml:"address_u"`
	AddressV      string   `yaml:"address_v" toml:"address_v"`
	AddressW      string   `yaml:"address_w" toml:"address_w"`
	MagFilter     string   `yaml:"mag_filter" toml:"mag_filter"`
	MinFilter     string   `yaml:"min_filter" toml:"min_filter"`
	MipmapFilter  string   `yaml:"mipmap_filter" toml:"mipmap_filter"`
	LodMinClamp   *float32 `yaml:"lod_min_clamp" toml:"lod_min_clamp"`
	LodMaxClamp   *float32 `yaml:"lod_max_clamp" toml:"lod_max_clamp"`
	Compare       string   `yaml:"compare" toml:"compare"`
	MaxAnisotropy uint16   `yaml:"max_anisotropy" toml:"max_anisotropy"`
}

type polygonOffsetDoc struct {
	SlopeScale float32 `yaml:"slope_scale" toml:"slope_scale"`
	Units      int32   `yaml:"units" toml:"units"`
}

type stencilRefDoc struct {
	Front uint32 `yaml:"front" toml:"front"`
	Back  uint32 `yaml:"back" toml:"back"`
}

type channelDoc struct {
	Name   string `yaml:"name" toml:"name"`
	Format string `yaml:"format" toml:"format"`
}

type framebufferDoc struct {
	Name   string       `yaml:"name" toml:"name"`
	Colors []channelDoc `yaml:"colors" toml:"colors"`
	Depth  string       `yaml:"depth" toml:"depth"`
}

// variableDoc is a typed resource. Type accepts engine names ("FloatV3") and WGSL names ("vec3<f32>").
type variableDoc struct {
	Name string `yaml:"name" toml:"name"`
	Type string `yaml:"type" toml:"type"`
}

type textureDoc struct {
	Name    string `yaml:"name" toml:"name"`
	Sampler string `yaml:"sampler" toml:"sampler"`
}

type imageDoc struct {
	Name   string `yaml:"name" toml:"name"`
	Format string `yaml:"format" toml:"format"`
	Access string `yaml:"access" toml:"access"`
}

type resourcesDoc struct {
	Attributes           []variableDoc `yaml:"attributes" toml:"attributes"`
	Outputs              []channelDoc  `yaml:"outputs" toml:"outputs"`
	UniformBuffers       []string      `yaml:"uniform_buffers" toml:"uniform_buffers"`
	StorageBuffers       []string      `yaml:"storage_buffers" toml:"storage_buffers"`
	AtomicCounterBuffers []string      `yaml:"atomic_counter_buffers" toml:"atomic_counter_buffers"`
	Textures             []textureDoc  `yaml:"textures" toml:"textures"`
	Images               []imageDoc    `yaml:"images" toml:"images"`
	Uniforms             []variableDoc `yaml:"uniforms" toml:"uniforms"`
}
