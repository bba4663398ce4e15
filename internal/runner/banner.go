package runner

import (
	"github.com/projectdiscovery/edgefinder/pkg/version"
	"github.com/projectdiscovery/gologger"
)

var banner = `
           __           ____ _           __
  ___  ___/ /___ ____  / __/(_)___  ___/ /___  ____
 / -_)/ _  // _ '/ -_)/ /_ / // _ \/ _  // -_)/ __/
 \__/ \_,_/ \_, /\__//_/  /_//_//_/\_,_/ \__//_/
           /___/
`

// showBanner prints the tool banner and version.
func showBanner() {
	gologger.Print().Msgf("%s\t\t%s\n\n", banner, version.GetVersion())
}
