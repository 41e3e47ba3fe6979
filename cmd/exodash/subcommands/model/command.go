package model

import (
	model_info "github.com/opst/exodash/cmd/exodash/subcommands/model/info"
	model_list "github.com/opst/exodash/cmd/exodash/subcommands/model/list"
	model_show "github.com/opst/exodash/cmd/exodash/subcommands/model/show"
	model_versions "github.com/opst/exodash/cmd/exodash/subcommands/model/versions"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	list, err := model_list.New()
	if err != nil {
		return nil, err
	}
	versions, err := model_versions.New()
	if err != nil {
		return nil, err
	}
	show, err := model_show.New()
	if err != nil {
		return nil, err
	}
	info, err := model_info.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Browse models and their versions.",
		struct{}{},
		flarc.WithSubcommand("list", list),
		flarc.WithSubcommand("versions", versions),
		flarc.WithSubcommand("show", show),
		flarc.WithSubcommand("info", info),
	)
}
