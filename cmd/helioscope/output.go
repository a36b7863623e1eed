package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"helioscope/internal/api"
	"helioscope/internal/feature/estimation/transport/handler"
	"helioscope/internal/feature/estimation/usecase"
	irrentity "helioscope/internal/feature/irradiance/domain/entity"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeSummary は推定結果を人が読む形式で出力します。
func writeSummary(out io.Writer, name string, r api.EstimateResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Image\t%s (%dx%d, %.2f m/px)\n", name, r.Width, r.Height, r.GSD)
	fmt.Fprintf(w, "Location\t%s\n", r.Assumptions.LocationName)
	fmt.Fprintf(w, "Backend\t%s\n", r.Assumptions.SegmentationBackend)
	if r.NoRooftops {
		fmt.Fprintf(w, "Result\tno rooftops detected\n")
		return w.Flush()
	}
	fmt.Fprintf(w, "Rooftops\t%d detected, %d viable\n", r.Totals.RegionCount, r.Totals.ViableCount)
	fmt.Fprintf(w, "Viable area\t%.1f m²\n", r.Totals.ViableAreaM2)
	fmt.Fprintf(w, "Annual energy\t%.0f kWh\n", r.Totals.AnnualEnergyKWh)
	fmt.Fprintf(w, "Carbon offset\t%.0f kg CO2e/yr\n", r.Totals.CarbonOffsetKg)
	fmt.Fprintf(w, "System size\t%.2f kW\n", r.Financials.SystemSizeKW)
	fmt.Fprintf(w, "Potential panels\t%d\n", r.Financials.Panels)
	fmt.Fprintf(w, "Net cost\t$%.0f\n", r.Financials.NetCost)
	fmt.Fprintf(w, "Annual savings\t$%.0f\n", r.Financials.AnnualSavings)
	if r.Financials.BreakEvenYears != nil {
		fmt.Fprintf(w, "Break-even\t%.1f years\n", *r.Financials.BreakEvenYears)
	} else {
		fmt.Fprintf(w, "Break-even\tnot achievable\n")
	}
	if r.Narrative != "" {
		fmt.Fprintf(w, "\n%s\n", r.Narrative)
	}
	return w.Flush()
}

type batchEntry struct {
	Image  string                `json:"image"`
	Result *api.EstimateResponse `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// writeBatch は入力順に1画像1行で出力します。失敗した画像があってもエラーにはしません。
func writeBatch(out io.Writer, names []string, results []usecase.BatchResult, asJSON bool) error {
	entries := make([]batchEntry, len(results))
	for i, br := range results {
		entries[i].Image = names[i]
		if br.Err != nil {
			entries[i].Error = usecase.Describe(br.Err)
			continue
		}
		resp := handler.ToEstimateResponse(br.Result)
		entries[i].Result = &resp
	}
	if asJSON {
		return writeJSON(out, entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tVIABLE\tAREA (m²)\tENERGY (kWh/yr)\tBREAK-EVEN\tERROR")
	for _, e := range entries {
		if e.Result == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", e.Image, e.Error)
			continue
		}
		breakEven := "n/a"
		if y := e.Result.Financials.BreakEvenYears; y != nil {
			breakEven = fmt.Sprintf("%.1f y", *y)
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%.1f\t%.0f\t%s\t\n", e.Image,
			e.Result.Totals.ViableCount, e.Result.Totals.RegionCount,
			e.Result.Totals.ViableAreaM2, e.Result.Totals.AnnualEnergyKWh, breakEven)
	}
	return w.Flush()
}

func writeLocations(out io.Writer, sites []irrentity.SiteConditions, asJSON bool) error {
	resp := make([]api.LocationResponse, 0, len(sites))
	for _, s := range sites {
		resp = append(resp, handler.ToLocationResponse(s))
	}
	if asJSON {
		return writeJSON(out, resp)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tkWh/m²/yr\tkg CO2e/kWh\t$/kWh\t$/W")
	for _, l := range resp {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.3f\t%.3f\t%.2f\n", l.ID, l.Name, l.AnnualKWhPerM2, l.EmissionsFactor, l.ElectricityPrice, l.InstalledCostPerWatt)
	}
	return w.Flush()
}
