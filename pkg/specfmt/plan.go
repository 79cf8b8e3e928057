package specfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/specfile/pkg/domain"
)

// SeqNumColumn labels the x column of scans that do not move a motor.
const SeqNumColumn = "seq_num"

// OtherScan is the command name used for plans with no spec equivalent.
const OtherScan = "Other"

// DefaultAcqTime is written when the start document carries no count time.
const DefaultAcqTime = -1

var (
	scansWithoutMotors = map[string]string{"ct": "count"}
	scansWithMotors    = map[string]string{"ascan": "scan", "dscan": "rel_scan"}

	// planToScan maps acquisition plan names to spec command names.
	planToScan = func() map[string]string {
		m := make(map[string]string, len(scansWithoutMotors)+len(scansWithMotors))
		for scan, plan := range scansWithoutMotors {
			m[plan] = scan
		}
		for scan, plan := range scansWithMotors {
			m[plan] = scan
		}
		return m
	}()
)

// ScanName returns the spec command for an acquisition plan name.
func ScanName(planName string) string {
	if name, ok := planToScan[planName]; ok {
		return name
	}
	return OtherScan
}

// MovesMotor reports whether the spec command scans a motor.
func MovesMotor(scanName string) bool {
	_, ok := scansWithMotors[scanName]
	return ok
}

// AcqTime returns the run's count time, falling back to DefaultAcqTime when
// it is absent or null.
func AcqTime(start *domain.RunStart) any {
	if start.CountTime == nil {
		return DefaultAcqTime
	}
	return start.CountTime
}

// MotorName returns the label of the x column.
func (f *Formatter) MotorName(start *domain.RunStart) (string, error) {
	if !MovesMotor(ScanName(start.PlanName)) {
		return SeqNumColumn, nil
	}
	switch len(start.Motors) {
	case 0:
		return "", domain.MissingField(domain.DocStart, "motors")
	case 1:
		return start.Motors[0], nil
	}
	if f.lenient {
		return SeqNumColumn, nil
	}
	return "", fmt.Errorf("%w: scan moves %d motors (%s)",
		domain.ErrMultipleMotors, len(start.Motors), strings.Join(start.Motors, ", "))
}

// MotorPosition returns the x value of an event row.
func (f *Formatter) MotorPosition(start *domain.RunStart, ev *domain.Event) (any, error) {
	motor, err := f.MotorName(start)
	if err != nil {
		return nil, err
	}
	if motor == SeqNumColumn {
		return ev.SeqNum, nil
	}
	v, ok := ev.Data[motor]
	if !ok {
		return nil, domain.MissingField(domain.DocEvent, "data."+motor)
	}
	return v, nil
}

// DataColumns lists the scalar fields of the primary stream, sorted, without the motor.
func (f *Formatter) DataColumns(start *domain.RunStart, primary *domain.Descriptor) ([]string, error) {
	motor, err := f.MotorName(start)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(primary.DataKeys))
	for name, key := range primary.DataKeys {
		if key.ObjectName != motor && key.Scalar() {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	return cols, nil
}

// command builds the text after the scan id on the #S line.
func (f *Formatter) command(start *domain.RunStart) (string, error) {
	scan := ScanName(start.PlanName)
	motor, err := f.MotorName(start)
	if err != nil {
		return "", err
	}

	parts := []any{scan, motor}
	if MovesMotor(scan) {
		args := start.PlanArgs.Args
		if len(args) < 2 {
			return "", domain.MissingField(domain.DocStart, "plan_args.args")
		}
		if start.PlanArgs.Num == nil {
			return "", domain.MissingField(domain.DocStart, "plan_args.num")
		}
		parts = append(parts, args[len(args)-2], args[len(args)-1], start.PlanArgs.Num)
	}
	parts = append(parts, AcqTime(start))
	return joinValues(parts, " "), nil
}
