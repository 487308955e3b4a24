// Command animtool inspects, exports and imports animation assets.
//
//	animtool [-config ossa.toml] inspect  <asset.oanim>
//	animtool [-config ossa.toml] export   <asset.oanim> <out.timeline>
//	animtool [-config ossa.toml] import   <asset.oanim> <in.timeline>
//	animtool [-config ossa.toml] mapping  <asset.oanim> <rig.yaml>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spaghettifunk/ossa/engine/anim"
	"github.com/spaghettifunk/ossa/engine/config"
	"github.com/spaghettifunk/ossa/engine/core"
	"github.com/spaghettifunk/ossa/engine/scripting"
	"github.com/spaghettifunk/ossa/engine/skeleton"
)

func main() {
	configPath := flag.String("config", "", "path to a toml config file")
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "animtool: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	core.SetLogLevel(cfg.LogLevel)

	registry := scripting.NewRegistry()
	if info, err := os.Stat(cfg.ScriptsPath); err == nil && info.IsDir() {
		if err := registry.LoadScripts(cfg.ScriptsPath); err != nil {
			core.LogWarn("failed to load scripts from '%s': %v", cfg.ScriptsPath, err)
		}
	}

	loader := &anim.Loader{Registry: registry}
	if err := run(loader, args); err != nil {
		fmt.Fprintf(os.Stderr, "animtool: %v\n", err)
		os.Exit(1)
	}
}

func run(loader *anim.Loader, args []string) error {
	command, assetPath := args[0], args[1]

	asset, err := loader.Load(assetPath)
	if err != nil {
		return err
	}
	animation := asset.(*anim.Animation)
	defer animation.Unload()

	switch command {
	case "inspect":
		return inspect(animation)
	case "export":
		if len(args) < 3 {
			usage()
			return fmt.Errorf("export needs an output path")
		}
		payload, err := animation.ExportTimeline()
		if err != nil {
			return err
		}
		return os.WriteFile(args[2], payload, 0o644)
	case "import":
		if len(args) < 3 {
			usage()
			return fmt.Errorf("import needs a timeline path")
		}
		payload, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		if err := animation.ImportTimeline(payload); err != nil {
			return err
		}
		return anim.SaveToFile(animation, assetPath)
	case "mapping":
		if len(args) < 3 {
			usage()
			return fmt.Errorf("mapping needs a rig path")
		}
		return mapping(animation, args[2])
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func inspect(animation *anim.Animation) error {
	info := animation.GetInfo()
	fmt.Printf("animation:  %s\n", animation.Name)
	fmt.Printf("length:     %.3fs (%d frames @ %.1f fps)\n", info.Length, info.FramesCount, animation.Data.FramesPerSecond)
	fmt.Printf("channels:   %d\n", info.ChannelsCount)
	fmt.Printf("keyframes:  %d\n", info.KeyframesCount)
	fmt.Printf("memory:     %d bytes\n", info.MemoryUsage)
	if animation.Data.EnableRootMotion {
		fmt.Printf("root node:  %s (root motion enabled)\n", animation.Data.RootNodeName)
	}
	for i := range animation.Data.Channels {
		c := &animation.Data.Channels[i]
		fmt.Printf("  channel %-3d %-24s pos:%-4d rot:%-4d scale:%-4d\n",
			i, c.NodeName, c.Position.Count(), c.Rotation.Count(), c.Scale.Count())
	}
	for i := range animation.Events {
		t := &animation.Events[i]
		fmt.Printf("  events  %-3d %-24s keyframes:%d\n", i, t.Name, len(t.Keyframes))
	}
	return nil
}

func mapping(animation *anim.Animation, rigPath string) error {
	data, err := os.ReadFile(rigPath)
	if err != nil {
		return err
	}
	rig, err := skeleton.ParseRig(data)
	if err != nil {
		return err
	}
	model := skeleton.NewSkinnedModel(rig.Name)
	model.Load(rig.Skeleton())
	defer model.Unload()

	nodeToChannel, err := animation.GetMapping(model)
	if err != nil {
		return err
	}
	nodes := model.Skeleton().Nodes
	for i, channelIndex := range nodeToChannel {
		if channelIndex < 0 {
			fmt.Printf("  node %-3d %-24s -> (unmatched)\n", i, nodes[i].Name)
		} else {
			fmt.Printf("  node %-3d %-24s -> channel %d\n", i, nodes[i].Name, channelIndex)
		}
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: animtool [-config ossa.toml] <inspect|export|import|mapping> <asset.oanim> [args]")
}
