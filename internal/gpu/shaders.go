package gpu

// Attribute and uniform names shared by both shader dialects.
const (
	AttribPosition = "a_position"

	UniformImageSize          = "u_imageSize"
	UniformViewportRect       = "u_viewportRect"
	UniformViewportTransform  = "u_viewportTransform"
	UniformMarkerType         = "u_markerType"
	UniformMarkerScale        = "u_markerScale"
	UniformScalarRange        = "u_markerScalarRange"
	UniformOpacity            = "u_markerOpacity"
	UniformUseColorFromMarker = "u_useColorFromMarker"
	UniformColorLUT           = "u_colorLUT"
	UniformColorscale         = "u_colorscale"
	UniformShapeAtlas         = "u_shapeAtlas"
)

// Texture units of the three samplers.
const (
	UnitColorLUT   = 0
	UnitColorscale = 1
	UnitShapeAtlas = 2
)

// MarkerSources is the point-sprite marker program.
var MarkerSources = Sources{
	ES100: ProgramSource{
		Vertex:   markersVertexES100,
		Fragment: markersFragmentES100,
	},
	Core330: ProgramSource{
		Vertex:   markersVertexCore330,
		Fragment: markersFragmentCore330,
	},
}

const markersVertexBody = `
#define MARKER_TYPE_DISCRETE 0
#define MARKER_TYPE_SCALAR 1
#define SHAPE_GRID_SIZE 4.0
#define ROUND_SHAPE_ALPHA 7.0

vec3 hex_to_rgb(float v)
{
    v = clamp(v, 0.0, 16777215.0);
    return floor(mod((v + 0.49) / vec3(65536.0, 256.0, 1.0), 256.0)) / 255.0;
}

void main()
{
    vec2 imagePos = a_position.xy * u_imageSize;
    vec2 viewportPos = imagePos - u_viewportRect.xy;
    vec2 ndcPos = (viewportPos / u_viewportRect.zw) * 2.0 - 1.0;
    ndcPos.y = -ndcPos.y;
    ndcPos = u_viewportTransform * ndcPos;

    if (u_markerType == MARKER_TYPE_DISCRETE) {
        v_color = SAMPLE(u_colorLUT, vec2(a_position.z, 0.5));
    } else {
        vec2 range = u_markerScalarRange;
        float normalized = (a_position.z - range[0]) / (range[1] - range[0]);
        v_color.rgb = SAMPLE(u_colorscale, vec2(normalized, 0.5)).rgb;
        v_color.a = ROUND_SHAPE_ALPHA / 255.0;
    }

    if (u_useColorFromMarker) v_color.rgb = hex_to_rgb(a_position.w);

    gl_Position = vec4(ndcPos, 0.0, 1.0);
    gl_PointSize = max(2.0, u_markerScale / u_viewportRect.w);

    v_shapeOrigin.x = mod(v_color.a * 255.0 - 1.0, SHAPE_GRID_SIZE);
    v_shapeOrigin.y = floor((v_color.a * 255.0 - 1.0) / SHAPE_GRID_SIZE);
    v_shapeColorBias = max(0.0, 1.0 - gl_PointSize * 0.2);

    // Hidden markers are moved outside the clip volume so that no
    // fragments are generated for them.
    v_color.a = v_color.a > 0.0 ? u_markerOpacity : 0.0;
    if (v_color.a == 0.0) gl_Position = vec4(2.0, 2.0, 2.0, 0.0);
}
`

const markersUniforms = `
uniform vec2 u_imageSize;
uniform vec4 u_viewportRect;
uniform mat2 u_viewportTransform;
uniform int u_markerType;
uniform float u_markerScale;
uniform vec2 u_markerScalarRange;
uniform float u_markerOpacity;
uniform bool u_useColorFromMarker;
uniform sampler2D u_colorLUT;
uniform sampler2D u_colorscale;
`

const markersVertexES100 = `
precision highp float;
` + markersUniforms + `
attribute vec4 a_position;

varying vec4 v_color;
varying vec2 v_shapeOrigin;
varying float v_shapeColorBias;

#define SAMPLE texture2D
` + markersVertexBody

const markersVertexCore330 = `#version 330 core
` + markersUniforms + `
layout(location = 0) in vec4 a_position;

out vec4 v_color;
out vec2 v_shapeOrigin;
out float v_shapeColorBias;

#define SAMPLE texture
` + markersVertexBody

const markersFragmentES100 = `
precision mediump float;

uniform sampler2D u_shapeAtlas;

varying vec4 v_color;
varying vec2 v_shapeOrigin;
varying float v_shapeColorBias;

#define UV_SCALE 0.7
#define SHAPE_GRID_SIZE 4.0

void main()
{
    vec2 uv = (gl_PointCoord.xy - 0.5) * UV_SCALE + 0.5;
    uv = (uv + v_shapeOrigin) * (1.0 / SHAPE_GRID_SIZE);

    vec4 shapeColor = texture2D(u_shapeAtlas, uv, -0.5);
    shapeColor.rgb = clamp(shapeColor.rgb + v_shapeColorBias, 0.0, 1.0);

    gl_FragColor = shapeColor * v_color;
    gl_FragColor.rgb *= gl_FragColor.a;
    if (gl_FragColor.a < 0.01) discard;
}
`

const markersFragmentCore330 = `#version 330 core

uniform sampler2D u_shapeAtlas;

in vec4 v_color;
in vec2 v_shapeOrigin;
in float v_shapeColorBias;

out vec4 fragColor;

#define UV_SCALE 0.7
#define SHAPE_GRID_SIZE 4.0

void main()
{
    vec2 uv = (gl_PointCoord.xy - 0.5) * UV_SCALE + 0.5;
    uv = (uv + v_shapeOrigin) * (1.0 / SHAPE_GRID_SIZE);

    vec4 shapeColor = texture(u_shapeAtlas, uv, -0.5);
    shapeColor.rgb = clamp(shapeColor.rgb + v_shapeColorBias, 0.0, 1.0);

    fragColor = shapeColor * v_color;
    fragColor.rgb *= fragColor.a;
    if (fragColor.a < 0.01) discard;
}
`
