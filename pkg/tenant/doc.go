// Package tenant provides the tenant identity context consumed by the
// entitlement engine. The surrounding application resolves who is asking
// (subdomain, header, token claim) and stores the result with WithTenant;
// the access gate and quota enforcer read it back with FromContext.
package tenant
