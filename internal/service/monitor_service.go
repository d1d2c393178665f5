package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/alert"
	"github.com/sitepulse/sitepulse-backend-go/internal/forecast"
	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/pmsync"
	"github.com/sitepulse/sitepulse-backend-go/internal/repository"
	"github.com/sitepulse/sitepulse-backend-go/internal/waste"
)

// jobNeedsSync lists which job types refresh external data before reading the
// snapshot. Waste detection runs often and works from the local snapshot;
// reconciliation-bearing types pay the external call on slower cadences.
var jobNeedsSync = map[models.JobType]bool{
	models.JobHealthCheck:       true,
	models.JobProgressTracking:  true,
	models.JobStrategicAnalysis: true,
	models.JobWasteDetection:    false,
}

// RunOutputs carries what a run produced, handed to the alert emitter only
// after the run ledger records the terminal status.
type RunOutputs struct {
	Project       *models.Project
	WasteRecords  []models.WasteRecord
	Forecast      *models.ForecastSnapshot
	Digest        *models.DigestReport
	SyncResult    *pmsync.Result
}

// MonitorService executes one monitoring run end to end: reconcile when the
// job type requires fresh data, load a consistent snapshot, run classification
// and forecasting over it, and persist the outputs.
type MonitorService struct {
	projects  *repository.ProjectRepository
	tasks     *repository.TaskRepository
	wastes    *repository.WasteRepository
	forecasts *repository.ForecastRepository

	classifier *waste.Classifier
	engine     *forecast.Engine
	reconciler *pmsync.Reconciler
	emitter    *alert.Emitter

	// Now is injectable for tests
	Now func() time.Time
}

// NewMonitorService wires the pipeline together. reconciler may be nil when
// no external PM system is configured; sync steps are then skipped.
func NewMonitorService(db *sql.DB, engine *forecast.Engine, reconciler *pmsync.Reconciler, emitter *alert.Emitter) *MonitorService {
	return &MonitorService{
		projects:   repository.NewProjectRepository(db),
		tasks:      repository.NewTaskRepository(db),
		wastes:     repository.NewWasteRepository(db),
		forecasts:  repository.NewForecastRepository(db),
		classifier: waste.NewClassifier(),
		engine:     engine,
		reconciler: reconciler,
		emitter:    emitter,
		Now:        time.Now,
	}
}

// ExecuteRun performs the work of one dispatched run. The caller owns the
// JobRun lifecycle; outputs are returned so alerts can be emitted after the
// terminal status is recorded.
func (s *MonitorService) ExecuteRun(ctx context.Context, run *models.JobRun) (*RunOutputs, error) {
	project, err := s.projects.GetByID(run.ProjectID)
	if err != nil {
		return nil, err
	}

	outputs := &RunOutputs{Project: project}

	if jobNeedsSync[run.JobType] && s.reconciler != nil && project.ExternalID != "" {
		result, err := s.reconciler.Reconcile(ctx, project)
		outputs.SyncResult = result
		if err != nil {
			return outputs, fmt.Errorf("reconciliation failed: %w", err)
		}
	}

	// Snapshot is loaded once, after reconciliation, so classification and
	// forecasting see the same data.
	snap, err := s.LoadSnapshot(project)
	if err != nil {
		return outputs, err
	}

	switch run.JobType {
	case models.JobWasteDetection:
		err = s.runClassification(snap, outputs)

	case models.JobProgressTracking:
		err = s.trackProgress(snap, outputs)

	case models.JobHealthCheck:
		err = s.runFullAnalysis(ctx, snap, outputs, false)

	case models.JobStrategicAnalysis:
		err = s.runFullAnalysis(ctx, snap, outputs, true)

	default:
		err = fmt.Errorf("unknown job type: %s", run.JobType)
	}

	return outputs, err
}

// EmitOutputs hands run outputs to the alert emitter. Callers invoke this
// only after the run's terminal status is persisted, so consumers never see
// partially-written runs.
func (s *MonitorService) EmitOutputs(outputs *RunOutputs) {
	if outputs == nil || outputs.Project == nil {
		return
	}
	if outputs.WasteRecords != nil {
		s.emitter.EmitWasteAlerts(outputs.Project, outputs.WasteRecords)
	}
	if outputs.Forecast != nil {
		s.emitter.EmitForecastAlert(outputs.Project, outputs.Forecast)
	}
	if outputs.Digest != nil {
		s.emitter.EmitDigest(outputs.Digest)
	}
}

// LoadSnapshot assembles the point-in-time project view.
func (s *MonitorService) LoadSnapshot(project *models.Project) (*models.Snapshot, error) {
	tasks, err := s.tasks.ListByProject(project.ID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.tasks.ListAssignments(project.ID)
	if err != nil {
		return nil, err
	}
	progress, err := s.tasks.ListProgress(project.ID)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Project:     project,
		Tasks:       tasks,
		Assignments: assignments,
		Progress:    progress,
		TakenAt:     s.Now().UTC(),
	}, nil
}

func (s *MonitorService) runClassification(snap *models.Snapshot, outputs *RunOutputs) error {
	records := s.classifier.Classify(snap, s.Now())
	if err := s.wastes.ReplaceComputed(records); err != nil {
		return err
	}
	outputs.WasteRecords = records
	return nil
}

func (s *MonitorService) runForecast(snap *models.Snapshot, outputs *RunOutputs) error {
	residuals, err := s.forecasts.Residuals(snap.Project.ID)
	if err != nil {
		return err
	}

	snapshot, err := s.engine.Forecast(snap.Project, snap.Progress, residuals, s.Now())
	if err != nil {
		return err
	}

	if err := s.forecasts.Insert(snapshot); err != nil {
		return err
	}
	outputs.Forecast = snapshot
	return nil
}

// runFullAnalysis runs classification and forecasting concurrently; the two
// have no ordering dependency on each other.
func (s *MonitorService) runFullAnalysis(ctx context.Context, snap *models.Snapshot, outputs *RunOutputs, digest bool) error {
	var wg sync.WaitGroup
	var classifyErr, forecastErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		classifyErr = s.runClassification(snap, outputs)
	}()
	go func() {
		defer wg.Done()
		forecastErr = s.runForecast(snap, outputs)
	}()
	wg.Wait()

	if classifyErr != nil {
		return classifyErr
	}
	if forecastErr != nil {
		return forecastErr
	}

	if digest {
		outputs.Digest = s.emitter.BuildDigest(snap.Project, outputs.WasteRecords, outputs.Forecast, snap.OverallPercentComplete())
	}
	return nil
}

// trackProgress appends a progress sample, refreshes the project's earned
// value indices, and records the error of the previous forecast so later
// confidence intervals calibrate against observed accuracy.
func (s *MonitorService) trackProgress(snap *models.Snapshot, outputs *RunOutputs) error {
	now := s.Now().UTC()
	project := snap.Project

	percent := snap.OverallPercentComplete()
	actualCost := estimateActualCost(snap)
	earnedValue := project.Budget * percent / 100.0

	entry := &models.ProgressEntry{
		ProjectID:       project.ID,
		RecordedAt:      now,
		PercentComplete: percent,
		ActualCost:      actualCost,
		EarnedValue:     earnedValue,
	}
	if err := s.tasks.AppendProgress(entry); err != nil {
		return err
	}

	spi, cpi := performanceIndices(project, percent, actualCost, earnedValue, now)
	if err := s.projects.UpdateIndices(project.ID, spi, cpi, actualCost); err != nil {
		return err
	}

	if err := s.recordForecastResidual(project, percent, now); err != nil {
		// Residual bookkeeping must not fail the tracking run
		log.Printf("[MonitorService] failed to record forecast residual for project %d: %v", project.ID, err)
	}

	return nil
}

// recordForecastResidual compares the latest forecast's implied progress at
// now against the observed progress and stores the fractional error.
func (s *MonitorService) recordForecastResidual(project *models.Project, observedPercent float64, now time.Time) error {
	latest, err := s.forecasts.Latest(project.ID)
	if err != nil || latest == nil || latest.LowConfidence {
		return err
	}

	span := latest.CompletionDate.Sub(latest.GeneratedAt)
	if span <= 0 {
		return nil
	}

	elapsed := now.Sub(latest.GeneratedAt)
	if elapsed <= 0 {
		return nil
	}
	frac := elapsed.Hours() / span.Hours()
	if frac > 1 {
		frac = 1
	}

	// Forecast implied linear progress from its generation point to 100%
	impliedPercent := 100.0 * frac
	residual := (observedPercent - impliedPercent) / 100.0

	return s.forecasts.AppendResidual(project.ID, now, residual)
}

// performanceIndices computes SPI and CPI from earned value, planned value
// and actual cost. Both default to 1.0 when the denominators are degenerate.
func performanceIndices(p *models.Project, percent, actualCost, earnedValue float64, now time.Time) (spi, cpi float64) {
	spi, cpi = 1.0, 1.0

	dur := p.PlannedEnd.Sub(p.PlannedStart)
	if dur > 0 {
		elapsedFrac := now.Sub(p.PlannedStart).Hours() / dur.Hours()
		if elapsedFrac < 0 {
			elapsedFrac = 0
		}
		if elapsedFrac > 1 {
			elapsedFrac = 1
		}
		plannedValue := p.Budget * elapsedFrac
		if plannedValue > 0 {
			spi = earnedValue / plannedValue
		}
	}

	if actualCost > 0 {
		cpi = earnedValue / actualCost
	}

	return spi, cpi
}

// estimateActualCost derives cost actuals from consumed resource-hours at the
// project's blended hourly rate.
func estimateActualCost(snap *models.Snapshot) float64 {
	var plannedHours, actualHours float64
	for _, t := range snap.Tasks {
		plannedHours += t.PlannedHours
		actualHours += t.ActualHours
	}

	if plannedHours <= 0 {
		return snap.Project.ActualCost
	}

	rate := snap.Project.Budget / plannedHours
	return actualHours * rate
}
