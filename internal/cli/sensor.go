package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Manage the boolean sensors blockers and requirements read",
}

var sensorSetCmd = &cobra.Command{
	Use:   "set [name] [on|off]",
	Short: "Record a sensor state",
	Args:  cobra.ExactArgs(2),
	RunE:  runSensorSet,
}

var sensorListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all known sensors",
	RunE:  runSensorList,
}

func init() {
	sensorCmd.AddCommand(sensorSetCmd)
	sensorCmd.AddCommand(sensorListCmd)
}

func runSensorSet(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var on bool
	switch args[1] {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
		on = false
	default:
		return fmt.Errorf("invalid sensor state %q (want on or off)", args[1])
	}

	if err := s.SetSensor(args[0], on); err != nil {
		return err
	}
	fmt.Printf("Sensor %s is now %s\n", args[0], args[1])
	return nil
}

func runSensorList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sensors, err := s.Sensors()
	if err != nil {
		return err
	}
	if len(sensors) == 0 {
		fmt.Println("No sensors recorded.")
		return nil
	}
	names := make([]string, 0, len(sensors))
	for name := range sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "off"
		if sensors[name] {
			state = "on"
		}
		fmt.Printf("%-30s %s\n", name, state)
	}
	return nil
}
