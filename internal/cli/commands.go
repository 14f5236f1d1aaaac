package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smokyabdulrahman/athany/internal/config"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Long:  "Display current configuration, or use subcommands to modify it.\nWhen run without subcommands, shows the current configuration.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long: fmt.Sprintf("Set a configuration value. Valid keys: %s\n\nExamples:\n  athany config set city Cairo\n  athany config set country Egypt\n  athany config set method 5\n  athany config set selected_audio ~/athan/Abdul-Basit.mp3\n  athany config set mqtt_broker tcp://localhost:1883",
			strings.Join(config.ValidKeys, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a config value so the default applies",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigUnset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset config to defaults",
		Long:  "Delete the config file and restore all settings to defaults.",
		RunE:  runConfigReset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		RunE:  runConfigPath,
	})

	return cmd
}

// runConfigShow displays the stored configuration, noting environment
// overrides.
func runConfigShow(cmd *cobra.Command, args []string) error {
	stored, err := settings.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Configuration (%s)\n\n", settings.Path())

	var overridden []string
	for _, key := range config.ValidKeys {
		val, _ := stored.Get(key)
		if loadedConfig != nil {
			if eff, _ := loadedConfig.Get(key); eff != val {
				val = eff
				overridden = append(overridden, fmt.Sprintf("%s is overridden by %s", key, config.EnvName(key)))
			}
		}
		fmt.Printf("  %-15s %s\n", key, describeValue(key, val))
	}
	if len(overridden) > 0 {
		fmt.Println()
		for _, note := range overridden {
			fmt.Printf("  %s\n", display.Gray(note))
		}
	}
	fmt.Println()
	return nil
}

// describeValue adds a readable label to a raw config value.
func describeValue(key, val string) string {
	switch {
	case val == "":
		return display.Gray("(not set)")
	case key == "method":
		return formatMethodValue(val)
	case key == "school":
		return formatSchoolValue(val)
	}
	return val
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	val, err := settings.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(val)
	return nil
}

// runConfigSet sets a config key to the given value.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := settings.Set(key, value); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if err := settings.Unset(args[0]); err != nil {
		return err
	}
	fmt.Printf("Unset %s\n", args[0])
	return nil
}

// runConfigReset deletes the config file.
func runConfigReset(cmd *cobra.Command, args []string) error {
	if err := settings.Reset(); err != nil {
		return err
	}
	fmt.Println("Configuration reset to defaults.")
	return nil
}

// runConfigPath prints the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(settings.Path())
	return nil
}

// formatMethodValue adds the method name to the numeric value.
func formatMethodValue(val string) string {
	id, err := strconv.Atoi(val)
	if err != nil {
		return val
	}
	if id == -1 {
		return "-1 (chosen by the calendar service)"
	}
	for _, m := range CalculationMethods {
		if m.ID == id {
			return fmt.Sprintf("%s (%s)", val, m.Name)
		}
	}
	return val
}

// formatSchoolValue adds the school name to the numeric value.
func formatSchoolValue(val string) string {
	switch val {
	case "0":
		return "0 (Shafi)"
	case "1":
		return "1 (Hanafi)"
	default:
		return val
	}
}

// CalculationMethods lists all supported Al Adhan API calculation methods.
var CalculationMethods = []struct {
	ID   int
	Name string
}{
	{0, "Shia Ithna-Ashari (Jafari)"},
	{1, "University of Islamic Sciences, Karachi"},
	{2, "Islamic Society of North America (ISNA)"},
	{3, "Muslim World League (MWL)"},
	{4, "Umm Al-Qura University, Makkah"},
	{5, "Egyptian General Authority of Survey"},
	{7, "Institute of Geophysics, University of Tehran"},
	{8, "Gulf Region"},
	{9, "Kuwait"},
	{10, "Qatar"},
	{11, "Majlis Ugama Islam Singapura (Singapore)"},
	{12, "Union Organization Islamic de France"},
	{13, "Diyanet Isleri Baskanligi, Turkey (experimental)"},
	{14, "Spiritual Administration of Muslims of Russia"},
	{15, "Moonsighting Committee Worldwide"},
	{16, "Dubai (experimental)"},
	{17, "JAKIM (Malaysia)"},
	{18, "Tunisia"},
	{19, "Algeria"},
	{20, "KEMENAG (Indonesia)"},
	{21, "Morocco"},
	{22, "Comunidade Islamica de Lisboa (Portugal)"},
	{23, "Ministry of Awqaf, Jordan"},
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of all supported Al Adhan API calculation methods.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Supported calculation methods:")
			fmt.Println()
			tbl := display.NewTable("ID", "Name")
			for _, m := range CalculationMethods {
				tbl.AddRow(strconv.Itoa(m.ID), m.Name)
			}
			fmt.Print(tbl.Render())
			fmt.Println()
			fmt.Println("Use --method <ID> or `athany config set method <ID>` to select one.")
			fmt.Println("If omitted, the calendar service picks a default for your location.")
			return nil
		},
	}
}
