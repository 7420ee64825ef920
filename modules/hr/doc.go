// Package hr specializes the entitlement engine for the HR/payroll domain:
// the composite access view (foundation, suite, payroll capabilities plus
// the employee quota), the read-only fallback for lapsed tenants with
// existing records, and the chi router that wires employee and payroll
// routes behind the access gate and quota enforcement.
package hr
