package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/imdp/internal/experiment"
	"github.com/san-kum/imdp/internal/imdp"
	"github.com/san-kum/imdp/internal/synthesis"
)

// ExportData is the complete JSON rendition of a run: both grids, the
// mixed interval transitions and the controller.
type ExportData struct {
	Model       string                      `json:"model"`
	Resolution  string                      `json:"resolution"`
	Horizon     int                         `json:"horizon"`
	Status      string                      `json:"status"`
	States      []imdp.CellExport           `json:"states"`
	Inputs      []imdp.CellExport           `json:"inputs,omitempty"`
	Transitions []imdp.TransitionEntry      `json:"transitions"`
	Controller  []synthesis.ControllerEntry `json:"controller"`
}

func NewExportData(run *experiment.Run) ExportData {
	data := ExportData{
		Model:       run.Problem.Name,
		Resolution:  run.Result.Resolution.String(),
		Horizon:     run.Result.Horizon,
		Status:      run.Result.Status.String(),
		States:      imdp.ExportGrid(run.States, func(i int) string { return run.Labels.Of(i).String() }),
		Transitions: run.IMDP.ExportTransitions(),
		Controller:  run.Result.Controller(),
	}
	if run.Inputs != nil {
		data.Inputs = imdp.ExportGrid(run.Inputs, nil)
	}
	return data
}

func ExportJSON(w io.Writer, run *experiment.Run) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(run))
}
