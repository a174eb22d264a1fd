//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to <name>.<stage>.spv.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders, then builds the engine binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Build engine...")
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "anima-xr"), "."), withStream())
	return err
}

func buildShaders() error {
	var sources []string
	for _, stage := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, stage))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources in %s", shaderDir)
	}
	for _, src := range sources {
		// Multiview requires Vulkan 1.1 SPIR-V.
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.1", src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
