package wildcat

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/subashpoudel19/wildfire/core/models"
	"github.com/subashpoudel19/wildfire/core/raster"
)

// Client drives the external WILDCAT debris-flow assessment tool through
// its command line. One project directory per fire holds the tool's
// config, preprocessed inputs and exported products.
type Client struct {
	binary        string
	projectFolder string
}

// NewClient creates a new WILDCAT client. binary defaults to "wildcat" on
// PATH; projectFolder is where per-fire project directories are created.
func NewClient(binary, projectFolder string) *Client {
	if binary == "" {
		binary = "wildcat"
	}
	return &Client{
		binary:        binary,
		projectFolder: projectFolder,
	}
}

// Clip initializes the fire's project and runs preprocessing, which clips
// the shared datasets to the fire perimeter. A non-zero chunkHint is
// forwarded so the tool processes features in bounded batches.
func (c *Client) Clip(ctx context.Context, fire models.FireRecord, chunkHint int) error {
	projectDir, err := c.initProject(ctx, fire)
	if err != nil {
		return err
	}

	env := os.Environ()
	if chunkHint > 0 {
		env = append(env, "WILDCAT_CHUNK_FEATURES="+strconv.Itoa(chunkHint))
	}
	if err := c.run(ctx, env, "preprocess", projectDir); err != nil {
		return classifyError("preprocess", err)
	}
	return nil
}

// Assess runs the hazard computation and exports the per-basin vector
// products into the project directory, then loads the basin features.
func (c *Client) Assess(ctx context.Context, fire models.FireRecord, level models.OptimizationLevel) ([]models.BasinFeature, error) {
	projectDir := c.projectDir(fire)

	env := append(os.Environ(), "WILDCAT_OPTIMIZATION="+string(level))
	if err := c.run(ctx, env, "assess", projectDir); err != nil {
		return nil, classifyError("assess", err)
	}
	if err := c.run(ctx, env, "export", projectDir, "--format", "GeoJSON"); err != nil {
		return nil, classifyError("assess", err)
	}

	basins, err := raster.LoadBasins(filepath.Join(projectDir, "exports", "basins.geojson"))
	if err != nil {
		return nil, models.NewAssessmentError("assess", false,
			fmt.Errorf("tool produced no readable basins: %w", err))
	}
	return basins, nil
}

// Export copies the tool's exported products to the fire's destination
// folder and returns the product name to path mapping.
func (c *Client) Export(ctx context.Context, fire models.FireRecord, basins []models.BasinFeature, destination string) (map[string]string, error) {
	exportDir := filepath.Join(c.projectDir(fire), "exports")
	entries, err := os.ReadDir(exportDir)
	if err != nil {
		return nil, models.NewAssessmentError("export", false,
			fmt.Errorf("export folder missing: %w", err))
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	outputs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(exportDir, entry.Name())
		dst := filepath.Join(destination, entry.Name())
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
		}
		product := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())) +
			"_" + strings.TrimPrefix(filepath.Ext(entry.Name()), ".")
		outputs[product] = dst
	}
	if len(outputs) == 0 {
		return nil, models.NewAssessmentError("export", false,
			fmt.Errorf("tool exported no products"))
	}
	return outputs, nil
}

// initProject creates the fire's project directory and writes its inputs
// into the tool's config, once per fire.
func (c *Client) initProject(ctx context.Context, fire models.FireRecord) (string, error) {
	projectDir := c.projectDir(fire)
	configPath := filepath.Join(projectDir, "config.py")
	if _, err := os.Stat(configPath); err == nil {
		return projectDir, nil
	}

	if err := c.run(ctx, os.Environ(), "initialize", projectDir); err != nil {
		return "", classifyError("preprocess", err)
	}
	if err := writeFireInputs(configPath, fire); err != nil {
		return "", err
	}
	log.Printf("[%s] Initialized project at %s", fire.Key(), projectDir)
	return projectDir, nil
}

func (c *Client) projectDir(fire models.FireRecord) string {
	return filepath.Join(c.projectFolder, fire.Key())
}

func (c *Client) run(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s %s: %s", c.binary, args[0], msg)
	}
	return nil
}

// classifyError maps tool failures onto the pipeline error taxonomy.
// Resource exhaustion is the one fault worth retrying: the batch's memory
// pressure varies as other fires finish.
func classifyError(stage string, err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "memoryerror") || strings.Contains(msg, "out of memory") ||
		strings.Contains(msg, "cannot allocate") {
		return models.NewAssessmentError(stage, true, err)
	}
	if stage == "preprocess" &&
		(strings.Contains(msg, "perimeter") || strings.Contains(msg, "missing")) {
		return models.NewInputDataError(stage, "%s", err.Error())
	}
	return models.NewAssessmentError(stage, false, err)
}

// writeFireInputs appends the fire-specific input block to the tool's
// generated config, mirroring how operators configure projects by hand.
func writeFireInputs(configPath string, fire models.FireRecord) error {
	var b strings.Builder
	b.WriteString("\n# Fire-specific inputs\n")
	fmt.Fprintf(&b, "perimeter = r%q\n", fire.PerimeterPath)
	if fire.DEMPath != "" {
		fmt.Fprintf(&b, "dem = r%q\n", fire.DEMPath)
	}
	if fire.DNBRPath != "" {
		fmt.Fprintf(&b, "dnbr = r%q\n", fire.DNBRPath)
	}
	if fire.SeverityPath != "" {
		fmt.Fprintf(&b, "severity = r%q\n", fire.SeverityPath)
	} else {
		b.WriteString("# severity estimated from dNBR\n")
	}

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open project config: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
