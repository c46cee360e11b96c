package unity

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// typesByExt maps file extensions to the asset type the editor shows for them
var typesByExt = map[string]string{
	".prefab":             "GameObject",
	".unity":              "SceneAsset",
	".mat":                "Material",
	".controller":         "AnimatorController",
	".overridecontroller": "AnimatorOverrideController",
	".anim":               "AnimationClip",
	".mask":               "AvatarMask",
	".physicmaterial":     "PhysicMaterial",
	".physicsmaterial2d":  "PhysicsMaterial2D",
	".rendertexture":      "RenderTexture",
	".cubemap":            "Cubemap",
	".flare":              "Flare",
	".guiskin":            "GUISkin",
	".fontsettings":       "Font",
	".mixer":              "AudioMixerController",
	".spriteatlas":        "SpriteAtlas",
	".lighting":           "LightingSettings",
	".playable":           "PlayableAsset",
	".signal":             "SignalAsset",
	".shadervariants":     "ShaderVariantCollection",
	".terrainlayer":       "TerrainLayer",
	".brush":              "Brush",
	".cs":                 "MonoScript",
	".shader":             "Shader",
	".shadergraph":        "Shader",
	".compute":            "ComputeShader",
	".hlsl":               "ShaderInclude",
	".cginc":              "ShaderInclude",
	".png":                "Texture2D",
	".jpg":                "Texture2D",
	".jpeg":               "Texture2D",
	".tga":                "Texture2D",
	".psd":                "Texture2D",
	".tif":                "Texture2D",
	".tiff":               "Texture2D",
	".exr":                "Texture2D",
	".hdr":                "Texture2D",
	".fbx":                "Model",
	".obj":                "Model",
	".blend":              "Model",
	".wav":                "AudioClip",
	".mp3":                "AudioClip",
	".ogg":                "AudioClip",
	".aif":                "AudioClip",
	".aiff":               "AudioClip",
	".ttf":                "Font",
	".otf":                "Font",
	".mp4":                "VideoClip",
	".mov":                "VideoClip",
	".webm":               "VideoClip",
	".txt":                "TextAsset",
	".json":               "TextAsset",
	".xml":                "TextAsset",
	".bytes":              "TextAsset",
	".csv":                "TextAsset",
	".asmdef":             "AssemblyDefinitionAsset",
	".asmref":             "AssemblyDefinitionReferenceAsset",
	".dll":                "PluginImporter",
}

// yamlExts are the extensions whose files are serialized objects that may
// reference other assets
var yamlExts = map[string]bool{
	".prefab":             true,
	".unity":              true,
	".mat":                true,
	".asset":              true,
	".controller":         true,
	".overridecontroller": true,
	".anim":               true,
	".mask":               true,
	".physicmaterial":     true,
	".physicsmaterial2d":  true,
	".rendertexture":      true,
	".cubemap":            true,
	".flare":              true,
	".guiskin":            true,
	".fontsettings":       true,
	".mixer":              true,
	".spriteatlas":        true,
	".lighting":           true,
	".playable":           true,
	".signal":             true,
	".shadervariants":     true,
	".terrainlayer":       true,
	".brush":              true,
}

// assetType guesses the type of the asset at path. Generic .asset files are
// named after the class of their first serialized object.
func assetType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := typesByExt[ext]; ok {
		return t
	}
	if ext == ".asset" {
		if class := firstClass(path); class != "" {
			return class
		}
	}
	return "DefaultAsset"
}

// firstClass returns the top-level key of the first document in a text
// serialized asset, e.g. "MonoBehaviour" or "TerrainData"
func firstClass(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inDoc := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "---"):
			inDoc = true
		case inDoc && line != "" && line[0] != ' ' && strings.HasSuffix(line, ":"):
			return strings.TrimSuffix(line, ":")
		}
	}
	return ""
}
