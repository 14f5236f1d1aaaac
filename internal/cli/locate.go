package cli

import (
	"encoding/json"
	"fmt"

	"github.com/smokyabdulrahman/athany/internal/geo"
	"github.com/spf13/cobra"
)

var flagLocateSave bool

func newLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Detect your city from your IP address",
		Args:  cobra.NoArgs,
		RunE:  runLocate,
	}
	cmd.Flags().BoolVar(&flagLocateSave, "save", false, "Save the detected city and country to the config")
	return cmd
}

func runLocate(cmd *cobra.Command, args []string) error {
	loc, err := geo.DetectLocation(cmd.Context())
	if err != nil {
		if geo.IsUnavailable(err) {
			return fmt.Errorf("couldn't detect your location: %w; %s", err, locationHint)
		}
		return err
	}

	if FlagJSON {
		data, err := json.MarshalIndent(loc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("%s, %s (%s)\n", loc.City, loc.Country, loc.Timezone)
	}

	if !flagLocateSave {
		return nil
	}
	if settings == nil {
		return fmt.Errorf("no config store available")
	}
	if err := settings.SaveLocation(loc.City, loc.Country); err != nil {
		return err
	}
	fmt.Printf("Saved to %s\n", settings.Path())
	return nil
}
