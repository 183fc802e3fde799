package services

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

func TestBuildWrapperFor(t *testing.T) {
	const freebsd entities.TargetTriple = "x86_64-unknown-freebsd"

	tests := []struct {
		host    entities.TargetTriple
		target  entities.TargetTriple
		want    entities.BuildWrapper
		wantErr bool
	}{
		{host: entities.TargetX64LinuxGNU, target: entities.TargetX64LinuxGNU, want: entities.WrapperNone},
		{host: entities.TargetX64LinuxGNU, target: entities.TargetX64LinuxMusl, want: entities.WrapperZigbuild},
		{host: entities.TargetX64LinuxGNU, target: entities.TargetARM64LinuxGNU, want: entities.WrapperZigbuild},
		{host: entities.TargetX64LinuxGNU, target: entities.TargetX64WindowsMSVC, want: entities.WrapperXwin},
		{host: entities.TargetX64LinuxGNU, target: entities.TargetX64WindowsGNU, want: entities.WrapperZigbuild},
		{host: entities.TargetX64LinuxGNU, target: entities.TargetARM64MacOS, want: entities.WrapperZigbuild},
		{host: entities.TargetARM64MacOS, target: entities.TargetX64MacOS, want: entities.WrapperNone},
		{host: entities.TargetARM64MacOS, target: entities.TargetX64LinuxMusl, want: entities.WrapperZigbuild},
		{host: entities.TargetARM64MacOS, target: entities.TargetX64WindowsMSVC, want: entities.WrapperXwin},
		{host: entities.TargetX64WindowsMSVC, target: entities.TargetX86WindowsMSVC, want: entities.WrapperNone},
		{host: entities.TargetX64WindowsMSVC, target: entities.TargetX64LinuxGNU, wantErr: true},
		{host: entities.TargetX64WindowsMSVC, target: entities.TargetARM64MacOS, wantErr: true},
		{host: freebsd, target: entities.TargetX64LinuxGNU, wantErr: true},
		{host: freebsd, target: freebsd, want: entities.WrapperNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.host)+"->"+string(tt.target), func(t *testing.T) {
			got, err := BuildWrapperFor(tt.host, tt.target)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedCrossCompile) {
					t.Errorf("BuildWrapperFor() error = %v, want ErrUnsupportedCrossCompile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildWrapperFor() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildWrapperFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func groupNames(groups []entities.StepGroup) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

func stepNames(steps []entities.BuildStep) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.StepName())
	}
	return names
}

func TestCompileBuildSteps_Order(t *testing.T) {
	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), entities.DefaultAppConfig(),
		entities.TargetX64LinuxGNU, entities.TargetX64WindowsMSVC)
	if err := b.AddShellInstaller(releaseIdx); err != nil {
		t.Fatalf("AddShellInstaller() error = %v", err)
	}
	b.AddUnifiedChecksum(entities.ChecksumSha256)

	graph := b.Graph()
	if err := CompileBuildSteps(graph); err != nil {
		t.Fatalf("CompileBuildSteps() error = %v", err)
	}

	wantLocal := []string{
		"compile-x86_64-unknown-linux-gnu",
		"compile-x86_64-pc-windows-msvc",
		"demo-x86_64-unknown-linux-gnu.tar.xz",
		"demo-x86_64-pc-windows-msvc.zip",
	}
	if diff := cmp.Diff(wantLocal, groupNames(graph.LocalSteps)); diff != "" {
		t.Errorf("local groups mismatch (-want +got):\n%s", diff)
	}
	wantGlobal := []string{"demo-installer.sh", "sha256.sum"}
	if diff := cmp.Diff(wantGlobal, groupNames(graph.GlobalSteps)); diff != "" {
		t.Errorf("global groups mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"zip-dir", "checksum"}, stepNames(graph.LocalSteps[2].Steps)); diff != "" {
		t.Errorf("archive steps mismatch (-want +got):\n%s", diff)
	}

	compile := graph.LocalSteps[1].Steps[0].(entities.CompileStep)
	if compile.Wrapper != entities.WrapperXwin {
		t.Errorf("msvc compile wrapper = %q, want xwin", compile.Wrapper)
	}
	if diff := cmp.Diff([]string{"demo"}, compile.Packages); diff != "" {
		t.Errorf("compile packages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]entities.BinaryIdx{1}, compile.Binaries); diff != "" {
		t.Errorf("compile binaries mismatch (-want +got):\n%s", diff)
	}

	unified := graph.GlobalSteps[1].Steps[0].(entities.UnifiedChecksumStep)
	wantSources := []string{
		"dist/demo-x86_64-unknown-linux-gnu.tar.xz",
		"dist/demo-x86_64-pc-windows-msvc.zip",
	}
	if diff := cmp.Diff(wantSources, unified.SrcPaths); diff != "" {
		t.Errorf("unified checksum sources mismatch (-want +got):\n%s", diff)
	}

	// compiling again replaces the previous steps
	before := len(graph.LocalSteps)
	if err := CompileBuildSteps(graph); err != nil {
		t.Fatalf("second CompileBuildSteps() error = %v", err)
	}
	if len(graph.LocalSteps) != before {
		t.Errorf("local groups = %d after recompiling, want %d", len(graph.LocalSteps), before)
	}
}

func TestCompileBuildSteps_StaticAssets(t *testing.T) {
	pkg := demoPackage()
	pkg.ReadmeFile = "README.md"
	config := entities.DefaultAppConfig()
	config.Include = []string{"assets"}
	config.Checksum = entities.ChecksumNone

	b := newTestBuilder()
	plannedRelease(b, pkg, config, entities.TargetX64LinuxGNU)
	graph := b.Graph()
	if err := CompileBuildSteps(graph); err != nil {
		t.Fatalf("CompileBuildSteps() error = %v", err)
	}

	want := []entities.BuildStep{
		entities.CopyFileStep{SrcPath: "README.md", DestPath: "dist/demo-x86_64-unknown-linux-gnu/README.md"},
		entities.CopyFileOrDirStep{SrcPath: "assets", DestPath: "dist/demo-x86_64-unknown-linux-gnu/assets"},
		entities.ZipDirStep{
			SrcPath:  "dist/demo-x86_64-unknown-linux-gnu",
			DestPath: "dist/demo-x86_64-unknown-linux-gnu.tar.xz",
			WithRoot: "demo-x86_64-unknown-linux-gnu",
			ZipStyle: entities.ZipStyleTarXz,
		},
	}
	if diff := cmp.Diff(want, graph.LocalSteps[1].Steps); diff != "" {
		t.Errorf("archive steps mismatch (-want +got):\n%s", diff)
	}
}

func twoPackageGraph(t *testing.T, precise bool) *entities.DistGraph {
	t.Helper()
	b := newTestBuilder()

	for _, name := range []string{"alpha", "beta"} {
		config := entities.DefaultAppConfig()
		config.PreciseBuilds = precise
		if name == "beta" {
			config.Features = []string{"extra"}
		}
		pkg := entities.Package{ID: name, Name: name, Version: "1.0.0", Binaries: []string{name}, ManifestPath: name + "/Cargo.toml"}
		plannedRelease(b, pkg, config, entities.TargetX64LinuxGNU)
	}
	return b.Graph()
}

func TestCompileBuildSteps_FeatureMismatch(t *testing.T) {
	graph := twoPackageGraph(t, false)

	err := CompileBuildSteps(graph)
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("CompileBuildSteps() error = %v, want ErrFeatureMismatch", err)
	}
	var mismatch *FeatureMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error is %T, want *FeatureMismatchError", err)
	}
	if diff := cmp.Diff([]string{"alpha/Cargo.toml", "beta/Cargo.toml"}, mismatch.Manifests); diff != "" {
		t.Errorf("Manifests mismatch (-want +got):\n%s", diff)
	}
	if graph.LocalSteps != nil || graph.GlobalSteps != nil {
		t.Errorf("steps were written despite the error")
	}
}

func TestCompileBuildSteps_PreciseBuilds(t *testing.T) {
	graph := twoPackageGraph(t, true)
	if err := CompileBuildSteps(graph); err != nil {
		t.Fatalf("CompileBuildSteps() error = %v", err)
	}

	want := []string{"compile-x86_64-unknown-linux-gnu-alpha", "compile-x86_64-unknown-linux-gnu-beta"}
	if diff := cmp.Diff(want, groupNames(graph.LocalSteps)[:2]); diff != "" {
		t.Errorf("compile groups mismatch (-want +got):\n%s", diff)
	}
	beta := graph.LocalSteps[1].Steps[0].(entities.CompileStep)
	if diff := cmp.Diff([]string{"extra"}, beta.Features.Features); diff != "" {
		t.Errorf("beta features mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileBuildSteps_SharedCompile(t *testing.T) {
	b := newTestBuilder()
	for _, name := range []string{"alpha", "beta"} {
		pkg := entities.Package{ID: name, Name: name, Version: "1.0.0", Binaries: []string{name}}
		plannedRelease(b, pkg, entities.DefaultAppConfig(), entities.TargetX64LinuxGNU)
	}
	graph := b.Graph()
	if err := CompileBuildSteps(graph); err != nil {
		t.Fatalf("CompileBuildSteps() error = %v", err)
	}

	compile := graph.LocalSteps[0].Steps[0].(entities.CompileStep)
	if diff := cmp.Diff([]string{"alpha", "beta"}, compile.Packages); diff != "" {
		t.Errorf("compile packages mismatch (-want +got):\n%s", diff)
	}
	if len(compile.Binaries) != 2 {
		t.Errorf("compile binaries = %v, want both", compile.Binaries)
	}
	if got := groupNames(graph.LocalSteps); len(got) != 3 {
		t.Errorf("local groups = %v, want one compile and two archives", got)
	}
}

func TestCompileBuildSteps_CrossCompile(t *testing.T) {
	b := NewGraphBuilder(PlannerOptions{DistDir: "dist", Host: entities.TargetX64WindowsMSVC}, nil)
	plannedRelease(b, demoPackage(), entities.DefaultAppConfig(), entities.TargetX64LinuxGNU)

	err := CompileBuildSteps(b.Graph())
	var cross *UnsupportedCrossCompileError
	if !errors.As(err, &cross) {
		t.Fatalf("CompileBuildSteps() error = %v, want *UnsupportedCrossCompileError", err)
	}
	if cross.Host != entities.TargetX64WindowsMSVC || cross.Target != entities.TargetX64LinuxGNU {
		t.Errorf("error = %+v, want the host and target filled in", cross)
	}
}

func TestSameFeatures(t *testing.T) {
	tests := []struct {
		name string
		a, b entities.FeatureSet
		want bool
	}{
		{name: "both empty", want: true},
		{name: "nil and empty list", a: entities.FeatureSet{Features: []string{}}, want: true},
		{
			name: "order ignored",
			a:    entities.FeatureSet{Features: []string{"tls", "json"}, DefaultFeatures: true},
			b:    entities.FeatureSet{Features: []string{"json", "tls"}, DefaultFeatures: true},
			want: true,
		},
		{
			name: "different features",
			a:    entities.FeatureSet{Features: []string{"tls"}},
			b:    entities.FeatureSet{Features: []string{"json"}},
		},
		{
			name: "default features differ",
			a:    entities.FeatureSet{DefaultFeatures: true},
		},
		{
			name: "all features differ",
			b:    entities.FeatureSet{AllFeatures: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameFeatures(tt.a, tt.b); got != tt.want {
				t.Errorf("sameFeatures() = %v, want %v", got, tt.want)
			}
			if got := sameFeatures(tt.b, tt.a); got != tt.want {
				t.Errorf("sameFeatures() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}
